package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// RecordPaymentRequest represents the request body for a payment
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,oneof=cash card check transfer"`
}

// GenerateInvoice handles POST /api/v1/cases/:id/invoice (staff only)
func GenerateInvoice(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionGenerateInvoice, 0) {
		respondForbidden(c)
		return
	}
	caseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := services.GenerateInvoice(caseID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    invoice,
	})
}

// GetInvoice handles GET /api/v1/cases/:id/invoice
func GetInvoice(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	caseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	repairCase, err := loadCase(caseID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionViewInvoice, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	db := config.GetDB()
	var invoice models.Invoice
	err = db.Preload("Lines").Preload("Payments").Where("case_id = ?", caseID).First(&invoice).Error
	if err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "no invoice for this case"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    invoice,
	})
}

// RecordPayment handles POST /api/v1/invoices/:id/payments (staff only)
func RecordPayment(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionRecordPayment, 0) {
		respondForbidden(c)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	payment, err := services.RecordPayment(invoiceID, req.Amount, req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payment,
	})
}

// GetInvoiceDocument handles GET /api/v1/invoices/:id/document - archives
// the rendered invoice on first access and returns a time-limited
// download link
func GetInvoiceDocument(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var invoice models.Invoice
	if err := db.First(&invoice, invoiceID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "invoice not found"))
		return
	}

	repairCase, err := loadCase(invoice.CaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionViewInvoice, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	key, err := services.ArchiveInvoiceDocument(invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := services.GetArchiveService().GetPresignedURL(key)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"key": key,
			"url": url,
		},
	})
}
