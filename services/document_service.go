package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/utils"
)

// RenderQuote produces the printable text document for a quote
func RenderQuote(quote *models.Quote, repairCase *models.Case) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "QUOTE %s\n", quote.Number)
	fmt.Fprintf(&b, "Case #%d - %s %s (%s)\n", repairCase.ID,
		repairCase.Vehicle.Brand, repairCase.Vehicle.Model, repairCase.Vehicle.Identifier())
	fmt.Fprintf(&b, "Client: %s\n", repairCase.Client.Name)
	if quote.IssuedAt != nil {
		fmt.Fprintf(&b, "Issued: %s\n", quote.IssuedAt.Format("02/01/2006"))
	}
	if quote.ValidUntil != nil {
		fmt.Fprintf(&b, "Valid until: %s\n", quote.ValidUntil.Format("02/01/2006"))
	}
	b.WriteString("\n")

	renderLines(&b, quoteLineRows(quote.Lines))
	renderTotals(&b, quote.Subtotal, quote.VATRate, quote.VATAmount, quote.Total)

	return []byte(b.String())
}

// RenderInvoice produces the printable text document for an invoice
func RenderInvoice(invoice *models.Invoice, repairCase *models.Case) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "INVOICE %s\n", invoice.Number)
	fmt.Fprintf(&b, "Case #%d - %s %s (%s)\n", repairCase.ID,
		repairCase.Vehicle.Brand, repairCase.Vehicle.Model, repairCase.Vehicle.Identifier())
	fmt.Fprintf(&b, "Client: %s\n", repairCase.Client.Name)
	fmt.Fprintf(&b, "Date: %s\n\n", invoice.CreatedAt.Format("02/01/2006"))

	rows := make([]lineRow, 0, len(invoice.Lines))
	for _, l := range invoice.Lines {
		rows = append(rows, lineRow{l.Label, l.Quantity, l.UnitPrice, l.LineTotal})
	}
	renderLines(&b, rows)
	renderTotals(&b, invoice.Subtotal, invoice.VATRate, invoice.VATAmount, invoice.Total)

	fmt.Fprintf(&b, "\nPaid: %.2f EUR - balance due: %.2f EUR (%s)\n",
		invoice.AmountPaid(), invoice.Balance(), invoice.PaidStatus)

	return []byte(b.String())
}

// ArchiveInvoiceDocument renders an invoice, stores the document in the
// archive under a fresh key and records the key on the invoice. Returns
// the existing key when the document was already archived.
func ArchiveInvoiceDocument(invoiceID uint) (string, error) {
	db := config.GetDB()

	var invoice models.Invoice
	err := db.Preload("Lines").Preload("Payments").First(&invoice, invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", NewDomainError(CodeNotFound, "invoice not found")
		}
		return "", err
	}
	if invoice.DocumentS3Key != nil && *invoice.DocumentS3Key != "" {
		return *invoice.DocumentS3Key, nil
	}

	var repairCase models.Case
	if err := db.Preload("Client").Preload("Vehicle").First(&repairCase, invoice.CaseID).Error; err != nil {
		return "", err
	}

	archive := GetArchiveService()
	if archive == nil {
		return "", fmt.Errorf("document archive is not configured")
	}

	key := fmt.Sprintf("invoices/%d/%s_%s.txt", time.Now().Year(),
		utils.SafeDocumentName(invoice.Number), uuid.NewString())
	content := RenderInvoice(&invoice, &repairCase)
	if err := archive.Store(key, content, "text/plain; charset=utf-8"); err != nil {
		return "", err
	}

	if err := db.Model(&invoice).Update("document_s3_key", key).Error; err != nil {
		return "", err
	}
	return key, nil
}

type lineRow struct {
	Label     string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

func quoteLineRows(lines []models.QuoteLine) []lineRow {
	rows := make([]lineRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, lineRow{l.Label, l.Quantity, l.UnitPrice, l.LineTotal})
	}
	return rows
}

func renderLines(b *strings.Builder, rows []lineRow) {
	fmt.Fprintf(b, "%-40s %5s %12s %12s\n", "Description", "Qty", "Unit price", "Total")
	b.WriteString(strings.Repeat("-", 72) + "\n")
	for _, r := range rows {
		fmt.Fprintf(b, "%-40s %5d %12.2f %12.2f\n", r.Label, r.Quantity, r.UnitPrice, r.LineTotal)
	}
}

func renderTotals(b *strings.Builder, subtotal, vatRate, vatAmount, total float64) {
	b.WriteString(strings.Repeat("-", 72) + "\n")
	fmt.Fprintf(b, "%-58s %12.2f\n", "Subtotal (excl. VAT)", subtotal)
	fmt.Fprintf(b, "%-58s %12.2f\n", fmt.Sprintf("VAT (%.0f%%)", vatRate*100), vatAmount)
	fmt.Fprintf(b, "%-58s %12.2f\n", "Total (incl. VAT)", total)
}
