package handlers

import (
	"backend/services"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterFCMTokenHandler registers FCM token for push notifications.
// @Summary Register FCM token
// @Description Registers FCM token for the current user. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body object true "token"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/fcm/register-token [post]
func RegisterFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSessionDetails(c, db)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var request struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Token is required."})
			return
		}

		if fcmService != nil {
			if err := fcmService.SaveFCMToken(session.UserID, request.Token); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save FCM token: " + err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token registered successfully"})
	}
}

// RemoveFCMTokenHandler removes FCM token for the current user.
// @Summary Remove FCM token
// @Description Removes FCM token. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/fcm/remove-token [delete]
func RemoveFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSessionDetails(c, db)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		if fcmService != nil {
			if err := fcmService.RemoveFCMToken(session.UserID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove FCM token: " + err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token removed successfully"})
	}
}
