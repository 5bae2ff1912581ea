package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

// ListNotifications handles GET /api/v1/notifications - the user's
// notifications, newest first. ?unread=true restricts to unread ones.
func ListNotifications(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	db := config.GetDB()
	query := db.Where("user_id = ?", user.ID).Order("created_at DESC").Limit(100)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func GetUnreadCount(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	count, err := services.UnreadCount(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"unread": count,
		},
	})
}

// MarkNotificationRead handles PUT /api/v1/notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := services.MarkNotificationRead(notificationID, user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}
