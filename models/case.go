package models

import (
	"time"

	"gorm.io/gorm"
)

// CaseStatus enumerates the repair case workflow states
type CaseStatus string

const (
	StatusNew                  CaseStatus = "new"
	StatusQuoteIssued          CaseStatus = "quote_issued"
	StatusQuoteAccepted        CaseStatus = "quote_accepted"
	StatusQuoteRefused         CaseStatus = "quote_refused"
	StatusExpired              CaseStatus = "expired"
	StatusAppointmentConfirmed CaseStatus = "appointment_confirmed"
	StatusInProgress           CaseStatus = "in_progress"
	StatusReady                CaseStatus = "ready"
	StatusClosed               CaseStatus = "closed"
)

// Urgency levels for a repair case
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// Case is one repair request lifecycle, from declaration to closure.
// It exclusively owns its quote, appointment, invoice and status logs.
type Case struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ClientID    uint           `gorm:"not null;index" json:"client_id"`
	Client      User           `gorm:"foreignKey:ClientID" json:"client"`
	VehicleID   uint           `gorm:"not null;index" json:"vehicle_id"`
	Vehicle     Vehicle        `gorm:"foreignKey:VehicleID" json:"vehicle"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Urgency     string         `gorm:"not null;default:'normal'" json:"urgency"`
	Status      CaseStatus     `gorm:"not null;default:'new';index" json:"status"`
	Faults      []Fault        `gorm:"many2many:case_faults" json:"faults,omitempty"`
	StatusLogs  []StatusLog    `gorm:"foreignKey:CaseID" json:"status_logs,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Case model
func (Case) TableName() string {
	return "cases"
}

// IsTerminal reports whether the case reached a state with no outgoing
// transitions. Terminal cases are archival; reopening means a fresh case.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusQuoteRefused || s == StatusExpired
}

// CanSelectFaults returns true while the client may still change the
// declared faults (before any quote exists)
func (c *Case) CanSelectFaults() bool {
	return c.Status == StatusNew
}

// CanBookAppointment returns true once the quote has been accepted
func (c *Case) CanBookAppointment() bool {
	return c.Status == StatusQuoteAccepted
}

// StatusLog is an immutable audit record of one case status change.
// Rows are only ever appended, never updated or deleted.
type StatusLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CaseID     uint       `gorm:"not null;index" json:"case_id"`
	FromStatus CaseStatus `gorm:"not null" json:"from_status"`
	ToStatus   CaseStatus `gorm:"not null" json:"to_status"`
	ActorID    *uint      `gorm:"index" json:"actor_id"` // nullable, nil for system-driven transitions
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Comment    string     `json:"comment"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for the StatusLog model
func (StatusLog) TableName() string {
	return "status_logs"
}
