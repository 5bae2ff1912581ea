package models

import (
	"time"

	"gorm.io/gorm"
)

// Paid status of an invoice, derived from its payments
const (
	InvoiceUnpaid        = "unpaid"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
)

// Payment methods accepted by the garage
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentCheck    = "check"
	PaymentTransfer = "transfer"
)

// Invoice is the final billing document generated when a case closes.
// Its lines mirror the accepted quote at generation time and never
// change afterwards.
type Invoice struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CaseID        uint           `gorm:"uniqueIndex;not null" json:"case_id"`
	Case          Case           `gorm:"foreignKey:CaseID" json:"-"`
	QuoteID       *uint          `gorm:"index" json:"quote_id"`
	Number        string         `gorm:"uniqueIndex;not null" json:"number"` // FAC-YYYY-###
	Lines         []InvoiceLine  `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
	Subtotal      float64        `gorm:"not null" json:"subtotal"`
	VATRate       float64        `gorm:"not null" json:"vat_rate"`
	VATAmount     float64        `gorm:"not null" json:"vat_amount"`
	Total         float64        `gorm:"not null" json:"total"`
	PaidStatus    string         `gorm:"not null;default:'unpaid'" json:"paid_status"`
	Payments      []Payment      `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
	DocumentS3Key *string        `json:"document_s3_key,omitempty"` // set once the rendered document is archived
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// AmountPaid sums the recorded payments
func (i *Invoice) AmountPaid() float64 {
	var paid float64
	for _, p := range i.Payments {
		paid += p.Amount
	}
	return paid
}

// Balance returns the amount still owed
func (i *Invoice) Balance() float64 {
	return i.Total - i.AmountPaid()
}

// InvoiceLine is a frozen copy of one quote line at generation time
type InvoiceLine struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	InvoiceID uint    `gorm:"not null;index" json:"invoice_id"`
	Label     string  `gorm:"not null" json:"label"`
	Quantity  int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
	LineTotal float64 `gorm:"not null" json:"line_total"`
}

// TableName specifies the table name for the InvoiceLine model
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// Payment records money received against an invoice. Append-only.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InvoiceID uint      `gorm:"not null;index" json:"invoice_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Method    string    `gorm:"not null" json:"method"`
	Reference string    `gorm:"not null" json:"reference"` // internal payment reference (uuid)
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
