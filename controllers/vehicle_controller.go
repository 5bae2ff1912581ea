package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// VehicleRequest represents the request body for a vehicle
type VehicleRequest struct {
	Brand       string  `json:"brand" binding:"required"`
	Model       string  `json:"model" binding:"required"`
	Year        int     `json:"year" binding:"omitempty,min=1900,max=2100"`
	PlateNumber *string `json:"plate_number"`
	Nickname    string  `json:"nickname"`
}

// CreateVehicle handles POST /api/v1/vehicles - registers a vehicle for
// the authenticated client
func CreateVehicle(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	vehicle := models.Vehicle{
		OwnerID:     user.ID,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		PlateNumber: req.PlateNumber,
		Nickname:    req.Nickname,
	}
	if err := config.GetDB().Create(&vehicle).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    vehicle,
	})
}

// ListVehicles handles GET /api/v1/vehicles - clients see their own
// vehicles, staff see everything
func ListVehicles(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	db := config.GetDB()
	query := db.Order("created_at DESC")
	if !user.IsStaff() {
		query = query.Where("owner_id = ?", user.ID)
	}

	var vehicles []models.Vehicle
	if err := query.Find(&vehicles).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    vehicles,
	})
}

// UpdateVehicle handles PUT /api/v1/vehicles/:id (owner only)
func UpdateVehicle(c *gin.Context) {
	_, vehicle, ok := loadOwnedVehicle(c)
	if !ok {
		return
	}

	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	vehicle.Brand = req.Brand
	vehicle.Model = req.Model
	vehicle.Year = req.Year
	vehicle.PlateNumber = req.PlateNumber
	vehicle.Nickname = req.Nickname
	if err := config.GetDB().Save(vehicle).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    vehicle,
	})
}

// DeleteVehicle handles DELETE /api/v1/vehicles/:id (owner only).
// Vehicles with repair cases keep their history; the delete is soft.
func DeleteVehicle(c *gin.Context) {
	_, vehicle, ok := loadOwnedVehicle(c)
	if !ok {
		return
	}

	if err := config.GetDB().Delete(vehicle).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Vehicle deleted",
	})
}

func loadOwnedVehicle(c *gin.Context) (*models.User, *models.Vehicle, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	vehicleID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}

	var vehicle models.Vehicle
	err = config.GetDB().Where("id = ? AND owner_id = ?", vehicleID, user.ID).First(&vehicle).Error
	if err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "vehicle not found"))
		return nil, nil, false
	}
	return user, &vehicle, true
}
