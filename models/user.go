package models

import (
	"time"

	"gorm.io/gorm"
)

// Role values assignable to a user account
const (
	RoleClient  = "client"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User represents a user in the system (client, manager or admin)
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Auth0ID     string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name        string         `gorm:"not null" json:"name"`
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`
	Role        string         `gorm:"not null;default:'client'" json:"role"` // "client", "manager" or "admin"
	PhoneNumber string         `json:"phone_number"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsClient returns true if the user holds the client role
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// IsManager returns true if the user holds the manager role
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// IsAdmin returns true if the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff returns true for managers and admins
func (u *User) IsStaff() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
