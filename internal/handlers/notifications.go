package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/services"
)

func GetNotifications(svc *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifications, err := svc.List(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, notifications)
	}
}

func MarkNotificationRead(svc *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		notification, err := svc.MarkRead(c.Request.Context(), id, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, notification)
	}
}

func MarkAllNotificationsRead(svc *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.MarkAllRead(c.Request.Context(), c.GetUint("userId")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"message": "All notifications marked as read"})
	}
}
