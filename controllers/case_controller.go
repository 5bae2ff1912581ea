package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// CreateCaseRequest represents the request body for declaring a problem
type CreateCaseRequest struct {
	VehicleID   uint   `json:"vehicle_id" binding:"required"`
	Description string `json:"description" binding:"required"`
	Urgency     string `json:"urgency" binding:"omitempty,oneof=low normal high"`
}

// SelectFaultsRequest represents the request body for fault selection
type SelectFaultsRequest struct {
	FaultIDs []uint `json:"fault_ids" binding:"required,min=1"`
}

// AdvanceStatusRequest represents the request body for a workflow transition
type AdvanceStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// CreateCase handles POST /api/v1/cases - declares a new repair case (clients only)
func CreateCase(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionCreateCase, user.ID) {
		respondForbidden(c)
		return
	}

	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()

	// The vehicle must belong to the declaring client
	var vehicle models.Vehicle
	if err := db.Where("id = ? AND owner_id = ?", req.VehicleID, user.ID).First(&vehicle).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "vehicle not found"))
		return
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	repairCase := models.Case{
		ClientID:    user.ID,
		VehicleID:   vehicle.ID,
		Description: req.Description,
		Urgency:     urgency,
		Status:      models.StatusNew,
	}
	if err := db.Create(&repairCase).Error; err != nil {
		respondError(c, err)
		return
	}

	if err := services.NotifyNewCase(&repairCase); err != nil {
		log.WithError(err).Warn("new case notification failed")
	}

	if err := db.Preload("Client").Preload("Vehicle").First(&repairCase, repairCase.ID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    repairCase,
	})
}

// ListCases handles GET /api/v1/cases - clients see their own cases,
// staff see everything
func ListCases(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	db := config.GetDB()
	query := db.Preload("Client").Preload("Vehicle").Order("created_at DESC")
	if !user.IsStaff() {
		query = query.Where("client_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var cases []models.Case
	if err := query.Find(&cases).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
	})
}

// GetCase handles GET /api/v1/cases/:id - case detail with its timeline
func GetCase(c *gin.Context) {
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
	if !services.Can(user, services.ActionViewCase, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	timeline, err := services.GetTimeline(caseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"case":     repairCase,
			"timeline": timeline,
		},
	})
}

// SelectFaults handles PUT /api/v1/cases/:id/faults - sets the declared
// faults while the case is still new
func SelectFaults(c *gin.Context) {
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
	if !services.Can(user, services.ActionSelectFaults, repairCase.ClientID) {
		respondForbidden(c)
		return
	}
	if !repairCase.CanSelectFaults() {
		respondError(c, services.NewDomainError(services.CodePreconditionNotMet,
			"faults can only be changed while the case is new"))
		return
	}

	var req SelectFaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var faults []models.Fault
	if err := db.Where("id IN ? AND is_active = ?", req.FaultIDs, true).Find(&faults).Error; err != nil {
		respondError(c, err)
		return
	}
	if len(faults) != len(req.FaultIDs) {
		respondError(c, services.NewDomainError(services.CodeInvalidSelection,
			"selection contains unknown or inactive faults"))
		return
	}

	if err := db.Model(repairCase).Association("Faults").Replace(faults); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    faults,
	})
}

// AdvanceStatus handles POST /api/v1/cases/:id/status - applies a
// workflow transition (staff only)
func AdvanceStatus(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	caseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !services.Can(user, services.ActionAdvanceStatus, 0) {
		respondForbidden(c)
		return
	}

	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	repairCase, err := services.ApplyTransition(caseID, models.CaseStatus(req.Status), user, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repairCase,
	})
}

func loadCase(caseID uint) (*models.Case, error) {
	db := config.GetDB()
	var repairCase models.Case
	err := db.Preload("Client").Preload("Vehicle").Preload("Faults").First(&repairCase, caseID).Error
	if err != nil {
		return nil, services.NewDomainError(services.CodeNotFound, "case not found")
	}
	return &repairCase, nil
}
