package models

import (
	"time"

	"gorm.io/gorm"
)

// Slot source values
const (
	SlotSourceRecurring = "recurring"
	SlotSourceException = "exception"
	SlotSourceOneOff    = "oneoff"
)

// AppointmentStatus enumerates appointment states
type AppointmentStatus string

const (
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
)

// SlotTemplate is a weekly recurring opening. Templates expand into
// concrete AppointmentSlot rows for a requested horizon.
type SlotTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Weekday   time.Weekday   `gorm:"not null" json:"weekday"` // 0 = Sunday
	StartHour int            `gorm:"not null" json:"start_hour"`
	StartMin  int            `gorm:"not null;default:0" json:"start_min"`
	EndHour   int            `gorm:"not null" json:"end_hour"`
	EndMin    int            `gorm:"not null;default:0" json:"end_min"`
	Capacity  int            `gorm:"not null;default:1" json:"capacity"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the SlotTemplate model
func (SlotTemplate) TableName() string {
	return "slot_templates"
}

// SlotException marks a calendar date as closed (holiday) or overrides
// the recurring hours for that date.
type SlotException struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Date      time.Time      `gorm:"not null;index" json:"date"` // midnight UTC of the affected day
	// No column default on purpose: gorm skips zero values for defaulted
	// columns on insert, which would turn Closed=false into true
	Closed    bool           `gorm:"not null" json:"closed"`
	StartHour int            `json:"start_hour"` // override hours, used when not closed
	EndHour   int            `json:"end_hour"`
	Capacity  int            `gorm:"default:1" json:"capacity"`
	Reason    string         `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the SlotException model
func (SlotException) TableName() string {
	return "slot_exceptions"
}

// AppointmentSlot is a concrete bookable time interval with limited
// capacity. Rows come from template expansion, exception overrides or
// one-off openings created by an admin.
type AppointmentSlot struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StartAt    time.Time      `gorm:"not null;uniqueIndex:idx_slot_start_source" json:"start_at"`
	EndAt      time.Time      `gorm:"not null" json:"end_at"`
	Capacity   int            `gorm:"not null;default:1" json:"capacity"`
	Source     string         `gorm:"not null;uniqueIndex:idx_slot_start_source" json:"source"`
	TemplateID *uint          `gorm:"index" json:"template_id,omitempty"`
	Available  bool           `gorm:"not null" json:"available"`
	Remaining  int            `gorm:"-" json:"remaining"` // computed when listing availability
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the AppointmentSlot model
func (AppointmentSlot) TableName() string {
	return "appointment_slots"
}

// Appointment binds one case to one slot. The partial unique index keeps
// a case from ever holding two non-cancelled appointments, whatever the
// connection interleaving.
type Appointment struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	CaseID       uint              `gorm:"not null;index:idx_appointments_case;index:idx_appointments_active_case,unique,where:status <> 'cancelled'" json:"case_id"`
	Case         Case              `gorm:"foreignKey:CaseID" json:"-"`
	SlotID       uint              `gorm:"not null;index" json:"slot_id"`
	Slot         AppointmentSlot   `gorm:"foreignKey:SlotID" json:"slot"`
	Status       AppointmentStatus `gorm:"not null;default:'confirmed';index" json:"status"`
	CancelledAt  *time.Time        `json:"cancelled_at"`
	CancelReason string            `json:"cancel_reason"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Appointment model
func (Appointment) TableName() string {
	return "appointments"
}

// IsActive reports whether the appointment still occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentCancelled
}
