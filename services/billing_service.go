package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/models"
)

// GenerateInvoice creates the invoice for a case that reached the end of
// its repair workflow. Idempotent: if an invoice already exists for the
// case it is returned as-is, a duplicate is never created.
func GenerateInvoice(caseID uint, actor *models.User) (*models.Invoice, error) {
	db := config.GetDB()

	var repairCase models.Case
	if err := db.First(&repairCase, caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodeNotFound, "case not found")
		}
		return nil, err
	}

	if repairCase.Status != models.StatusReady && repairCase.Status != models.StatusClosed {
		return nil, NewDomainError(CodePreconditionNotMet,
			fmt.Sprintf("an invoice cannot be generated for a case in status %q", repairCase.Status))
	}

	var invoice *models.Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = generateInvoiceTx(tx, &repairCase, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// generateInvoiceTx is the transactional core shared with the workflow's
// closing side effect. Lines mirror the accepted quote at generation
// time; the FAC-YYYY-### number is allocated under the numbering mutex
// with a unique index as backstop.
func generateInvoiceTx(tx *gorm.DB, repairCase *models.Case, now time.Time) (*models.Invoice, error) {
	var existing models.Invoice
	err := tx.Preload("Lines").Preload("Payments").
		Where("case_id = ?", repairCase.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var quote models.Quote
	err = tx.Preload("Lines").
		Where("case_id = ? AND status = ?", repairCase.ID, models.QuoteAccepted).
		Order("id DESC").First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDomainError(CodePreconditionNotMet, "case has no accepted quote to invoice")
		}
		return nil, err
	}

	invoiceNumberMu.Lock()
	defer invoiceNumberMu.Unlock()

	number, err := nextDocumentNumber(tx, "invoices", "FAC", now)
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		CaseID:     repairCase.ID,
		QuoteID:    &quote.ID,
		Number:     number,
		Subtotal:   quote.Subtotal,
		VATRate:    quote.VATRate,
		VATAmount:  quote.VATAmount,
		Total:      quote.Total,
		PaidStatus: models.InvoiceUnpaid,
	}
	for _, line := range quote.Lines {
		invoice.Lines = append(invoice.Lines, models.InvoiceLine{
			Label:     line.Label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"case_id": repairCase.ID,
		"invoice": invoice.Number,
		"total":   invoice.Total,
	}).Info("invoice generated")

	return &invoice, nil
}

// RecordPayment registers money received against an invoice. The amount
// must be positive and must not exceed the remaining balance; the paid
// status is recomputed after each payment.
func RecordPayment(invoiceID uint, amount float64, method string) (*models.Payment, error) {
	db := config.GetDB()

	if amount <= 0 {
		return nil, NewDomainError(CodeOverpaymentRejected, "payment amount must be positive")
	}
	switch method {
	case models.PaymentCash, models.PaymentCard, models.PaymentCheck, models.PaymentTransfer:
	default:
		return nil, NewDomainError(CodePreconditionNotMet, fmt.Sprintf("unknown payment method %q", method))
	}

	var payment *models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		err := tx.Preload("Payments").First(&invoice, invoiceID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewDomainError(CodeNotFound, "invoice not found")
			}
			return err
		}

		balance := invoice.Balance()
		if amount > balance+0.005 {
			return NewDomainError(CodeOverpaymentRejected,
				fmt.Sprintf("payment of %.2f exceeds the remaining balance of %.2f", amount, balance))
		}

		p := models.Payment{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    method,
			Reference: uuid.NewString(),
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}

		paid := invoice.AmountPaid() + amount
		status := models.InvoicePartiallyPaid
		if paid >= invoice.Total-0.005 {
			status = models.InvoicePaid
		}
		if err := tx.Model(&invoice).Update("paid_status", status).Error; err != nil {
			return err
		}

		payment = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"invoice_id": invoiceID,
		"amount":     amount,
		"method":     method,
	}).Info("payment recorded")

	return payment, nil
}
