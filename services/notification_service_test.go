package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aroussel/garage-api/models"
)

func TestNotifyStatusChange_OwnerAndManagers(t *testing.T) {
	f := setupWorkflowFixture(t)
	f.computeAndIssue(t)

	// Issuing already notified the owner
	var ownerNotifications []models.Notification
	assert.NoError(t, f.db.Where("user_id = ?", f.client.ID).Find(&ownerNotifications).Error)
	assert.Len(t, ownerNotifications, 1)
	assert.Equal(t, "Your quote is ready", ownerNotifications[0].Title)
	assert.Equal(t, models.NotificationSuccess, ownerNotifications[0].Kind)
	assert.Equal(t, f.repair.ID, *ownerNotifications[0].CaseID)

	// Acceptance notifies the owner and fans out to the manager
	_, err := ApplyTransition(f.repair.ID, models.StatusQuoteAccepted, f.client, "")
	assert.NoError(t, err)

	var managerNotifications []models.Notification
	assert.NoError(t, f.db.Where("user_id = ?", f.manager.ID).Find(&managerNotifications).Error)
	assert.Len(t, managerNotifications, 1)
	assert.Equal(t, "Quote accepted by a client", managerNotifications[0].Title)
}

func TestNotifyNewCase_ReachesAllStaff(t *testing.T) {
	f := setupWorkflowFixture(t)
	admin := models.User{Auth0ID: "auth0|admin1", Name: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}
	assert.NoError(t, f.db.Create(&admin).Error)

	assert.NoError(t, NotifyNewCase(f.repair))

	var count int64
	assert.NoError(t, f.db.Model(&models.Notification{}).
		Where("user_id IN ?", []uint{f.manager.ID, admin.ID}).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// The client is not told about their own declaration
	assert.NoError(t, f.db.Model(&models.Notification{}).
		Where("user_id = ?", f.client.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	f := setupWorkflowFixture(t)
	f.computeAndIssue(t)

	count, err := UnreadCount(f.client.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var notification models.Notification
	assert.NoError(t, f.db.Where("user_id = ?", f.client.ID).First(&notification).Error)

	assert.NoError(t, MarkNotificationRead(notification.ID, f.client.ID))

	count, err = UnreadCount(f.client.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	var reloaded models.Notification
	assert.NoError(t, f.db.First(&reloaded, notification.ID).Error)
	assert.True(t, reloaded.IsRead)
	assert.NotNil(t, reloaded.ReadAt)

	// Re-reading or reading someone else's notification is NOT_FOUND
	assert.Equal(t, CodeNotFound, CodeOf(MarkNotificationRead(notification.ID, f.client.ID)))
	assert.Equal(t, CodeNotFound, CodeOf(MarkNotificationRead(notification.ID, f.manager.ID)))
}
