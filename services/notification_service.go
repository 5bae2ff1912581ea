package services

import (
	"fmt"
	"time"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/models"
)

// statusMessage is the per-status notification content sent to the case
// owner when their case moves
type statusMessage struct {
	Title   string
	Message string
	Kind    string
}

var statusMessages = map[models.CaseStatus]statusMessage{
	models.StatusQuoteIssued: {
		Title:   "Your quote is ready",
		Message: "The quote for case #%d is available. You can accept or refuse it until its validity date.",
		Kind:    models.NotificationSuccess,
	},
	models.StatusQuoteAccepted: {
		Title:   "Quote accepted",
		Message: "You accepted the quote for case #%d. You can now book an appointment.",
		Kind:    models.NotificationInfo,
	},
	models.StatusQuoteRefused: {
		Title:   "Quote refused",
		Message: "The quote for case #%d was refused. The case is now closed.",
		Kind:    models.NotificationInfo,
	},
	models.StatusExpired: {
		Title:   "Quote expired",
		Message: "The quote for case #%d passed its validity date and has expired.",
		Kind:    models.NotificationWarning,
	},
	models.StatusAppointmentConfirmed: {
		Title:   "Appointment confirmed",
		Message: "Your appointment for case #%d is confirmed.",
		Kind:    models.NotificationSuccess,
	},
	models.StatusInProgress: {
		Title:   "Repairs started",
		Message: "The repairs for case #%d are underway.",
		Kind:    models.NotificationInfo,
	},
	models.StatusReady: {
		Title:   "Your vehicle is ready",
		Message: "The repairs for case #%d are finished. You can come pick up your vehicle.",
		Kind:    models.NotificationSuccess,
	},
	models.StatusClosed: {
		Title:   "Case closed",
		Message: "Case #%d has been closed. Thank you for your trust.",
		Kind:    models.NotificationInfo,
	},
}

// NotifyStatusChange fans a status-change event out to the case owner
// and, for the events managers care about, to every manager and admin.
// Callers treat this as fire-and-forget: an error here never blocks or
// rolls back the transition that triggered it.
func NotifyStatusChange(c *models.Case, from, to models.CaseStatus) error {
	db := config.GetDB()

	msg, ok := statusMessages[to]
	if ok {
		notification := models.Notification{
			UserID:  c.ClientID,
			Title:   msg.Title,
			Message: fmt.Sprintf(msg.Message, c.ID),
			Kind:    msg.Kind,
			CaseID:  &c.ID,
		}
		if err := db.Create(&notification).Error; err != nil {
			return err
		}
	}

	switch to {
	case models.StatusQuoteAccepted:
		return NotifyManagers("Quote accepted by a client",
			fmt.Sprintf("The quote for case #%d was accepted.", c.ID),
			models.NotificationSuccess, &c.ID)
	case models.StatusAppointmentConfirmed:
		return NotifyManagers("New appointment booked",
			fmt.Sprintf("An appointment was booked for case #%d.", c.ID),
			models.NotificationSuccess, &c.ID)
	}
	return nil
}

// NotifyNewCase tells every manager a client declared a new problem
func NotifyNewCase(c *models.Case) error {
	return NotifyManagers("New case created",
		fmt.Sprintf("A new repair case #%d was created.", c.ID),
		models.NotificationInfo, &c.ID)
}

// NotifyManagers creates one in-app notification per manager/admin user
func NotifyManagers(title, message, kind string, caseID *uint) error {
	db := config.GetDB()

	var staff []models.User
	if err := db.Where("role IN ?", []string{models.RoleManager, models.RoleAdmin}).
		Find(&staff).Error; err != nil {
		return err
	}

	for _, user := range staff {
		notification := models.Notification{
			UserID:  user.ID,
			Title:   title,
			Message: message,
			Kind:    kind,
			CaseID:  caseID,
		}
		if err := db.Create(&notification).Error; err != nil {
			return err
		}
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the badge
func UnreadCount(userID uint) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead flags one of the user's notifications as read
func MarkNotificationRead(notificationID, userID uint) error {
	db := config.GetDB()
	now := time.Now()

	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewDomainError(CodeNotFound, "notification not found or already read")
	}
	return nil
}
