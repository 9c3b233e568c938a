package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/models"
)

// addNotification writes an in-app notification inside the caller's
// transaction.
func addNotification(tx *sql.Tx, userID int64, message string, link *string) error {
	_, err := tx.Exec(`
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		userID, message, link, time.Now())
	return err
}

// GetMyNotifications returns the caller's notifications, newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	rows, err := h.DB.Query(`
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT 50`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query notifications"})
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead flips one notification to read, scoped to the
// caller.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := c.MustGet("userID").(int64)
	notificationID := c.Param("id")

	result, err := h.DB.Exec(`
		UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		notificationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// RegisterFCMTokenInput is the JSON body for POST /v1/me/fcm-token.
type RegisterFCMTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// RegisterFCMToken stores a device token for the caller. Re-registering the
// same token is a no-op.
func (h *Handlers) RegisterFCMToken(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var input RegisterFCMTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.DB.Exec(`
		INSERT INTO fcm_tokens (user_id, token, created_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
		userID, input.Token, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token registered"})
}

// DeleteFCMToken removes a device token, typically on logout.
func (h *Handlers) DeleteFCMToken(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var input RegisterFCMTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.DB.Exec(`
		DELETE FROM fcm_tokens WHERE user_id = ? AND token = ?`,
		userID, input.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token removed"})
}
