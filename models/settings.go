package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemSettings holds the garage-wide pricing and scheduling parameters.
// A single row (pk=1) exists in the database; only admins may change it.
type SystemSettings struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	HourlyRate          float64   `gorm:"not null;default:60" json:"hourly_rate"`
	VATRate             float64   `gorm:"not null;default:0.20" json:"vat_rate"`
	QuoteValidityDays   int       `gorm:"not null;default:15" json:"quote_validity_days"`
	CancelDeadlineHours int       `gorm:"not null;default:24" json:"cancel_deadline_hours"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for the SystemSettings model
func (SystemSettings) TableName() string {
	return "system_settings"
}

// SettingsSnapshot is the immutable value handed to the quote and
// scheduling engines. Quotes freeze the rates in effect at issuance, so
// engines never read the mutable settings row directly.
type SettingsSnapshot struct {
	HourlyRate          float64
	VATRate             float64
	QuoteValidityDays   int
	CancelDeadlineHours int
}

// Snapshot returns a value copy of the current settings
func (s *SystemSettings) Snapshot() SettingsSnapshot {
	return SettingsSnapshot{
		HourlyRate:          s.HourlyRate,
		VATRate:             s.VATRate,
		QuoteValidityDays:   s.QuoteValidityDays,
		CancelDeadlineHours: s.CancelDeadlineHours,
	}
}

// GetSettings loads the singleton settings row, creating it with defaults
// on first use.
func GetSettings(db *gorm.DB) (*SystemSettings, error) {
	settings := SystemSettings{
		ID:                  1,
		HourlyRate:          60,
		VATRate:             0.20,
		QuoteValidityDays:   15,
		CancelDeadlineHours: 24,
	}
	if err := db.Where(SystemSettings{ID: 1}).FirstOrCreate(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
