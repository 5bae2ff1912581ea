package models

import (
	"time"

	"gorm.io/gorm"
)

// Vehicle represents a client vehicle brought in for repairs
type Vehicle struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	Owner       User           `gorm:"foreignKey:OwnerID" json:"-"`
	Brand       string         `gorm:"not null" json:"brand"`
	Model       string         `gorm:"not null" json:"model"`
	Year        int            `gorm:"not null" json:"year"`
	PlateNumber *string        `json:"plate_number"` // nullable, either plate number or nickname is required
	Nickname    string         `json:"nickname"`
	Mileage     int            `json:"mileage"`
	FuelType    string         `json:"fuel_type"`
	Notes       string         `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Vehicle model
func (Vehicle) TableName() string {
	return "vehicles"
}

// Identifier returns the plate number when set, otherwise the nickname
func (v *Vehicle) Identifier() string {
	if v.PlateNumber != nil && *v.PlateNumber != "" {
		return *v.PlateNumber
	}
	return v.Nickname
}
