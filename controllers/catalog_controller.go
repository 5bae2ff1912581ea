package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// FaultGroupRequest represents the request body for a fault group
type FaultGroupRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// FaultRequest represents the request body for a fault definition
type FaultRequest struct {
	GroupID     uint    `json:"group_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	LaborHours  float64 `json:"labor_hours" binding:"required,gt=0"`
	PartsName   string  `json:"parts_name"`
	PartsCost   float64 `json:"parts_cost" binding:"gte=0"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateSettingsRequest carries partial updates to the system settings
type UpdateSettingsRequest struct {
	HourlyRate          *float64 `json:"hourly_rate" binding:"omitempty,gt=0"`
	VATRate             *float64 `json:"vat_rate" binding:"omitempty,gte=0,lt=1"`
	QuoteValidityDays   *int     `json:"quote_validity_days" binding:"omitempty,gt=0"`
	CancelDeadlineHours *int     `json:"cancel_deadline_hours" binding:"omitempty,gte=0"`
}

// ListCatalog handles GET /api/v1/catalog - the grouped rate card every
// authenticated user can browse. Inactive faults are hidden.
func ListCatalog(c *gin.Context) {
	db := config.GetDB()

	var groups []models.FaultGroup
	err := db.Preload("Faults", "is_active = ?", true).
		Order("display_order ASC, name ASC").
		Find(&groups).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
	})
}

// CreateFaultGroup handles POST /api/v1/admin/fault-groups (admin only)
func CreateFaultGroup(c *gin.Context) {
	if !requireCatalogAdmin(c) {
		return
	}

	var req FaultGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	group := models.FaultGroup{
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
	}
	if err := config.GetDB().Create(&group).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    group,
	})
}

// UpdateFaultGroup handles PUT /api/v1/admin/fault-groups/:id (admin only)
func UpdateFaultGroup(c *gin.Context) {
	if !requireCatalogAdmin(c) {
		return
	}
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req FaultGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var group models.FaultGroup
	if err := db.First(&group, groupID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "fault group not found"))
		return
	}

	group.Name = req.Name
	group.Description = req.Description
	group.DisplayOrder = req.DisplayOrder
	if err := db.Save(&group).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    group,
	})
}

// CreateFault handles POST /api/v1/admin/faults (admin only)
func CreateFault(c *gin.Context) {
	if !requireCatalogAdmin(c) {
		return
	}

	var req FaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var group models.FaultGroup
	if err := db.First(&group, req.GroupID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "fault group not found"))
		return
	}

	fault := models.Fault{
		GroupID:     req.GroupID,
		Name:        req.Name,
		Description: req.Description,
		LaborHours:  req.LaborHours,
		PartsName:   req.PartsName,
		PartsCost:   req.PartsCost,
		IsActive:    true,
	}
	if req.IsActive != nil {
		fault.IsActive = *req.IsActive
	}
	if err := db.Create(&fault).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    fault,
	})
}

// UpdateFault handles PUT /api/v1/admin/faults/:id (admin only).
// Deactivation is the supported way to retire a fault; rows referenced
// by quote lines stay in place.
func UpdateFault(c *gin.Context) {
	if !requireCatalogAdmin(c) {
		return
	}
	faultID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req FaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var fault models.Fault
	if err := db.First(&fault, faultID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "fault not found"))
		return
	}

	fault.GroupID = req.GroupID
	fault.Name = req.Name
	fault.Description = req.Description
	fault.LaborHours = req.LaborHours
	fault.PartsName = req.PartsName
	fault.PartsCost = req.PartsCost
	if req.IsActive != nil {
		fault.IsActive = *req.IsActive
	}
	if err := db.Save(&fault).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fault,
	})
}

// GetSettings handles GET /api/v1/admin/settings (admin only)
func GetSettings(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionManageSettings, 0) {
		respondForbidden(c)
		return
	}

	settings, err := models.GetSettings(config.GetDB())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings handles PUT /api/v1/admin/settings (admin only).
// Already issued quotes keep the rates frozen at issuance; only new
// quotes pick up the change.
func UpdateSettings(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionManageSettings, 0) {
		respondForbidden(c)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	settings, err := models.GetSettings(db)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.HourlyRate != nil {
		settings.HourlyRate = *req.HourlyRate
	}
	if req.VATRate != nil {
		settings.VATRate = *req.VATRate
	}
	if req.QuoteValidityDays != nil {
		settings.QuoteValidityDays = *req.QuoteValidityDays
	}
	if req.CancelDeadlineHours != nil {
		settings.CancelDeadlineHours = *req.CancelDeadlineHours
	}
	if err := db.Save(settings).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

func requireCatalogAdmin(c *gin.Context) bool {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !services.Can(user, services.ActionManageCatalog, 0) {
		respondForbidden(c)
		return false
	}
	return true
}
