package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// RefuseQuoteRequest carries the optional refusal reason
type RefuseQuoteRequest struct {
	Reason string `json:"reason"`
}

// ComputeQuote handles POST /api/v1/cases/:id/quote - computes a draft
// quote from the case's selected faults (staff only)
func ComputeQuote(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionComputeQuote, 0) {
		respondForbidden(c)
		return
	}
	caseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var repairCase models.Case
	if err := db.Preload("Faults").First(&repairCase, caseID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "case not found"))
		return
	}

	faultIDs := make([]uint, 0, len(repairCase.Faults))
	for _, f := range repairCase.Faults {
		faultIDs = append(faultIDs, f.ID)
	}

	settings, err := models.GetSettings(db)
	if err != nil {
		respondError(c, err)
		return
	}

	quote, err := services.ComputeQuote(caseID, faultIDs, settings.Snapshot())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    quote,
	})
}

// IssueQuote handles POST /api/v1/cases/:id/quote/issue - issues the
// draft quote and moves the case to quote_issued (staff only)
func IssueQuote(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionAdvanceStatus, 0) {
		respondForbidden(c)
		return
	}
	caseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	repairCase, err := services.ApplyTransition(caseID, models.StatusQuoteIssued, user, "")
	if err != nil {
		respondError(c, err)
		return
	}

	quote, err := services.GetQuoteForCase(repairCase.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quote,
	})
}

// GetQuote handles GET /api/v1/cases/:id/quote - returns the active
// quote of a case, lazily expiring it when overdue
func GetQuote(c *gin.Context) {
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
	if !services.Can(user, services.ActionViewQuote, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	quote, err := services.GetQuoteForCase(caseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quote,
	})
}

// AcceptQuote handles POST /api/v1/cases/:id/quote/accept (case owner only)
func AcceptQuote(c *gin.Context) {
	decideQuote(c, models.StatusQuoteAccepted, "")
}

// RefuseQuote handles POST /api/v1/cases/:id/quote/refuse (case owner only)
func RefuseQuote(c *gin.Context) {
	var req RefuseQuoteRequest
	// Body is optional for a refusal
	_ = c.ShouldBindJSON(&req)
	decideQuote(c, models.StatusQuoteRefused, req.Reason)
}

func decideQuote(c *gin.Context, target models.CaseStatus, comment string) {
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
	if !services.Can(user, services.ActionDecideQuote, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	updated, err := services.ApplyTransition(caseID, target, user, comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}
