package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
)

// Notification is an in-app message delivered to a user when something
// happens on one of their cases
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Kind      string         `gorm:"not null;default:'info'" json:"kind"`
	CaseID    *uint          `gorm:"index" json:"case_id,omitempty"`
	IsRead    bool           `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
