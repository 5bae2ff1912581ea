package models

import (
	"time"

	"gorm.io/gorm"
)

// QuoteStatus enumerates the quote lifecycle states
type QuoteStatus string

const (
	QuoteDraft      QuoteStatus = "draft"
	QuoteIssued     QuoteStatus = "issued"
	QuoteAccepted   QuoteStatus = "accepted"
	QuoteRefused    QuoteStatus = "refused"
	QuoteExpired    QuoteStatus = "expired"
	QuoteSuperseded QuoteStatus = "superseded"
)

// Quote is the priced proposal computed from a case's selected faults.
// Lines and totals are frozen once the quote is issued; re-selecting
// faults supersedes the quote with a new one instead of editing it.
type Quote struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CaseID      uint           `gorm:"not null;index" json:"case_id"`
	Case        Case           `gorm:"foreignKey:CaseID" json:"-"`
	Number      string         `gorm:"uniqueIndex;not null" json:"number"` // DEV-YYYY-###
	Status      QuoteStatus    `gorm:"not null;default:'draft';index" json:"status"`
	Lines       []QuoteLine    `gorm:"foreignKey:QuoteID" json:"lines,omitempty"`
	Subtotal    float64        `gorm:"not null;default:0" json:"subtotal"`
	VATRate     float64        `gorm:"not null" json:"vat_rate"` // snapshot of the rate at computation time
	VATAmount   float64        `gorm:"not null;default:0" json:"vat_amount"`
	Total       float64        `gorm:"not null;default:0" json:"total"`
	HourlyRate  float64        `gorm:"not null" json:"hourly_rate"` // snapshot of the labor rate
	IssuedAt    *time.Time     `json:"issued_at"`
	ValidUntil  *time.Time     `json:"valid_until"`
	RefusalNote string         `json:"refusal_note"`
	AcceptedAt  *time.Time     `json:"accepted_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Quote model
func (Quote) TableName() string {
	return "quotes"
}

// IsLocked reports whether lines and totals may no longer change
func (q *Quote) IsLocked() bool {
	return q.Status != QuoteDraft
}

// IsExpired reports whether an issued quote passed its validity date.
// The status flip itself happens lazily through the quote service.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.Status == QuoteIssued && q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// QuoteLine details one fault's contribution to the quote. Unit prices
// are copied from the rate card at computation time and never re-read.
type QuoteLine struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	QuoteID    uint    `gorm:"not null;index" json:"quote_id"`
	FaultID    uint    `gorm:"not null;index" json:"fault_id"`
	Fault      Fault   `gorm:"foreignKey:FaultID" json:"-"`
	Label      string  `gorm:"not null" json:"label"`
	LaborHours float64 `gorm:"not null" json:"labor_hours"`
	HourlyRate float64 `gorm:"not null" json:"hourly_rate"`
	PartsCost  float64 `gorm:"not null;default:0" json:"parts_cost"`
	Quantity   int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  float64 `gorm:"not null" json:"unit_price"`
	LineTotal  float64 `gorm:"not null" json:"line_total"`
}

// TableName specifies the table name for the QuoteLine model
func (QuoteLine) TableName() string {
	return "quote_lines"
}
