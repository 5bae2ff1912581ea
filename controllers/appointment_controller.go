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

// BookAppointmentRequest represents the request body for booking a slot
type BookAppointmentRequest struct {
	SlotID uint `json:"slot_id" binding:"required"`
}

// RescheduleRequest represents the request body for moving an appointment
type RescheduleRequest struct {
	SlotID uint `json:"slot_id" binding:"required"`
}

// CancelAppointmentRequest carries the optional cancellation reason
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// ListAvailableSlots handles GET /api/v1/slots?from=...&to=... - future
// openings with seats left over the requested horizon (defaults to the
// next 30 days)
func ListAvailableSlots(c *gin.Context) {
	from := time.Now()
	to := from.AddDate(0, 0, 30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		to = parsed
	}

	slots, err := services.ListAvailableSlots(from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    slots,
	})
}

// BookAppointment handles POST /api/v1/cases/:id/appointment - books a
// slot for a case whose quote was accepted (case owner only)
func BookAppointment(c *gin.Context) {
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
	if !services.Can(user, services.ActionBookAppointment, repairCase.ClientID) {
		respondForbidden(c)
		return
	}

	var req BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	appointment, err := services.Book(caseID, req.SlotID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    appointment,
	})
}

// GetAppointment handles GET /api/v1/cases/:id/appointment
func GetAppointment(c *gin.Context) {
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

	db := config.GetDB()
	var appointment models.Appointment
	err = db.Preload("Slot").
		Where("case_id = ? AND status <> ?", caseID, models.AppointmentCancelled).
		Order("id DESC").First(&appointment).Error
	if err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "no active appointment for this case"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    appointment,
	})
}

// RescheduleAppointment handles PUT /api/v1/appointments/:id - moves an
// appointment to another slot before the deadline
func RescheduleAppointment(c *gin.Context) {
	user, appointment, ok := authorizeAppointmentAction(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	updated, err := services.Reschedule(appointment.ID, req.SlotID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// CancelAppointment handles DELETE /api/v1/appointments/:id - cancels an
// appointment before the deadline and reopens booking for the case
func CancelAppointment(c *gin.Context) {
	user, appointment, ok := authorizeAppointmentAction(c)
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	if err := services.CancelAppointment(appointment.ID, user, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Appointment cancelled",
	})
}

// authorizeAppointmentAction loads the appointment and checks the actor
// may act on it (the owning client, or staff)
func authorizeAppointmentAction(c *gin.Context) (*models.User, *models.Appointment, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}

	db := config.GetDB()
	var appointment models.Appointment
	if err := db.Preload("Case").First(&appointment, appointmentID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "appointment not found"))
		return nil, nil, false
	}

	if !services.Can(user, services.ActionBookAppointment, appointment.Case.ClientID) && !user.IsStaff() {
		respondForbidden(c)
		return nil, nil, false
	}
	return user, &appointment, true
}
