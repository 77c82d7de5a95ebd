package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/services"
)

func GetMessages(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := parseID(c, "id")
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		pageResult, err := svc.ListMessages(c.Request.Context(), requestID, c.GetUint("userId"), page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, pageResult)
	}
}

func GetConversations(svc *services.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversations, err := svc.ListConversations(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, conversations)
	}
}
