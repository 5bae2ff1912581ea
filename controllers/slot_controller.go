package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// SlotTemplateRequest represents the request body for a weekly opening
type SlotTemplateRequest struct {
	Weekday   int   `json:"weekday" binding:"min=0,max=6"`
	StartHour int   `json:"start_hour" binding:"min=0,max=23"`
	StartMin  int   `json:"start_min" binding:"min=0,max=59"`
	EndHour   int   `json:"end_hour" binding:"required,min=1,max=24"`
	EndMin    int   `json:"end_min" binding:"min=0,max=59"`
	Capacity  int   `json:"capacity" binding:"required,min=1"`
	IsActive  *bool `json:"is_active"`
}

// SlotExceptionRequest represents the request body for a calendar exception
type SlotExceptionRequest struct {
	Date      string `json:"date" binding:"required"` // YYYY-MM-DD
	Closed    *bool  `json:"closed"`
	StartHour int    `json:"start_hour" binding:"min=0,max=23"`
	EndHour   int    `json:"end_hour" binding:"min=0,max=24"`
	Capacity  int    `json:"capacity" binding:"min=0"`
	Reason    string `json:"reason"`
}

// OneOffSlotRequest represents the request body for a single extra opening
type OneOffSlotRequest struct {
	StartAt  time.Time `json:"start_at" binding:"required"`
	EndAt    time.Time `json:"end_at" binding:"required"`
	Capacity int       `json:"capacity" binding:"min=0"`
}

// ListSlotTemplates handles GET /api/v1/admin/slot-templates (admin only)
func ListSlotTemplates(c *gin.Context) {
	if !requireSlotAdmin(c) {
		return
	}

	var templates []models.SlotTemplate
	err := config.GetDB().Order("weekday ASC, start_hour ASC").Find(&templates).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    templates,
	})
}

// CreateSlotTemplate handles POST /api/v1/admin/slot-templates (admin only)
func CreateSlotTemplate(c *gin.Context) {
	if !requireSlotAdmin(c) {
		return
	}

	var req SlotTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	template := models.SlotTemplate{
		Weekday:   time.Weekday(req.Weekday),
		StartHour: req.StartHour,
		StartMin:  req.StartMin,
		EndHour:   req.EndHour,
		EndMin:    req.EndMin,
		Capacity:  req.Capacity,
		IsActive:  true,
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if err := config.GetDB().Create(&template).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    template,
	})
}

// UpdateSlotTemplate handles PUT /api/v1/admin/slot-templates/:id (admin
// only). Already materialized slots keep their hours; the change applies
// to future expansion.
func UpdateSlotTemplate(c *gin.Context) {
	if !requireSlotAdmin(c) {
		return
	}
	templateID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SlotTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var template models.SlotTemplate
	if err := db.First(&template, templateID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "slot template not found"))
		return
	}

	template.Weekday = time.Weekday(req.Weekday)
	template.StartHour = req.StartHour
	template.StartMin = req.StartMin
	template.EndHour = req.EndHour
	template.EndMin = req.EndMin
	template.Capacity = req.Capacity
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if err := db.Save(&template).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    template,
	})
}

// CreateSlotException handles POST /api/v1/admin/slot-exceptions (admin
// only) - closes a date or overrides its recurring hours
func CreateSlotException(c *gin.Context) {
	if !requireSlotAdmin(c) {
		return
	}

	var req SlotExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	exception := models.SlotException{
		Date:      date,
		Closed:    true,
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
		Capacity:  req.Capacity,
		Reason:    req.Reason,
	}
	if req.Closed != nil {
		exception.Closed = *req.Closed
	}
	if exception.Capacity < 1 {
		exception.Capacity = 1
	}
	if err := config.GetDB().Create(&exception).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    exception,
	})
}

// CreateOneOffSlot handles POST /api/v1/admin/slots (admin only)
func CreateOneOffSlot(c *gin.Context) {
	if !requireSlotAdmin(c) {
		return
	}

	var req OneOffSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	slot, err := services.CreateOneOffSlot(req.StartAt, req.EndAt, req.Capacity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    slot,
	})
}

func requireSlotAdmin(c *gin.Context) bool {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !services.Can(user, services.ActionManageSlots, 0) {
		respondForbidden(c)
		return false
	}
	return true
}
