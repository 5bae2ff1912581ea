package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// CreateUserRequest represents the request body for profile creation.
// Name and email default to the values Auth0 reports for the token.
type CreateUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phone_number"`
}

// UpdateUserRequest represents the request body for updating a profile
type UpdateUserRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// UpdateRoleRequest represents the request body for a role change
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=client manager admin"`
}

// CreateUser handles POST /api/v1/users - creates the local profile for
// the authenticated Auth0 subject. New accounts always start as clients;
// an admin promotes them afterwards. Runs before LoadCurrentUser since
// the profile does not exist yet.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	db := config.GetDB()

	var existing models.User
	err = db.Where("auth0_id = ?", auth0ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    existing,
		})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, err)
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	name := req.Name
	email := req.Email
	if name == "" || email == "" {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			respondError(c, err)
			return
		}
		auth0Service := services.NewAuth0Service(config.GetConfig())
		userInfo, err := auth0Service.GetUserInfo(accessToken)
		if err != nil {
			log.WithError(err).Warn("failed to fetch userinfo from Auth0")
			respondValidationError(c, errors.New("name and email are required when Auth0 profile data is unavailable"))
			return
		}
		if name == "" {
			name = userInfo.Name
		}
		if email == "" {
			email = userInfo.Email
		}
	}

	user := models.User{
		Auth0ID:     auth0ID,
		Name:        name,
		Email:       email,
		Role:        models.RoleClient,
		PhoneNumber: req.PhoneNumber,
	}
	if err := db.Create(&user).Error; err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user profile created")

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetCurrentUser handles GET /api/v1/users/me
func GetCurrentUser(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateCurrentUser handles PUT /api/v1/users/me
func UpdateCurrentUser(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	user.PhoneNumber = req.PhoneNumber

	if err := config.GetDB().Save(user).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// ListUsers handles GET /api/v1/admin/users (admin only)
func ListUsers(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(user, services.ActionManageRoles, 0) {
		respondForbidden(c)
		return
	}

	db := config.GetDB()
	query := db.Order("created_at DESC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// UpdateUserRole handles PUT /api/v1/admin/users/:id/role (admin only)
func UpdateUserRole(c *gin.Context) {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !services.Can(actor, services.ActionManageRoles, 0) {
		respondForbidden(c)
		return
	}
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		respondError(c, services.NewDomainError(services.CodeNotFound, "user not found"))
		return
	}

	user.Role = req.Role
	if err := db.Save(&user).Error; err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"role":    user.Role,
		"by":      actor.ID,
	}).Info("user role updated")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
