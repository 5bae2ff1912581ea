package models

import (
	"time"

	"gorm.io/gorm"
)

// FaultGroup is a category of repairable faults (bodywork, tires, engine...)
type FaultGroup struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Description  string         `json:"description"`
	DisplayOrder int            `gorm:"default:0" json:"display_order"`
	Faults       []Fault        `gorm:"foreignKey:GroupID" json:"faults,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the FaultGroup model
func (FaultGroup) TableName() string {
	return "fault_groups"
}

// Fault is a priced fault definition belonging to one group.
// Labor hours and parts cost together form the rate card an automatic
// quote is computed from. Faults referenced by quote lines are never
// hard-deleted; deactivating hides them from new selections.
type Fault struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	GroupID     uint           `gorm:"not null;index" json:"group_id"`
	Group       FaultGroup     `gorm:"foreignKey:GroupID" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	LaborHours  float64        `gorm:"not null" json:"labor_hours"`
	PartsName   string         `json:"parts_name"`
	PartsCost   float64        `gorm:"not null;default:0" json:"parts_cost"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Fault model
func (Fault) TableName() string {
	return "faults"
}

// LaborCost returns the labor portion of the fault at the given hourly rate
func (f *Fault) LaborCost(hourlyRate float64) float64 {
	return f.LaborHours * hourlyRate
}

// TotalCost returns labor plus parts at the given hourly rate
func (f *Fault) TotalCost(hourlyRate float64) float64 {
	return f.LaborCost(hourlyRate) + f.PartsCost
}
