package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/store"
)

func BlockUser(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, ok := parseID(c, "id")
		if !ok {
			return
		}
		userID := c.GetUint("userId")

		if targetID == userID {
			c.JSON(400, gin.H{"error": "You cannot block yourself"})
			return
		}

		if _, err := st.GetUser(c.Request.Context(), targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(404, gin.H{"error": "User not found"})
				return
			}
			log.Printf("block user: %v", err)
			c.JSON(500, gin.H{"error": "internal server error"})
			return
		}

		block := &models.Block{BlockerID: userID, BlockedID: targetID}
		if err := st.CreateBlock(c.Request.Context(), block); err != nil {
			// unique index makes repeat blocks a no-op from the caller's view
			if errors.Is(err, store.ErrDuplicate) {
				c.JSON(200, gin.H{"message": "User blocked"})
				return
			}
			log.Printf("block user: %v", err)
			c.JSON(500, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(201, gin.H{"message": "User blocked"})
	}
}

func UnblockUser(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, ok := parseID(c, "id")
		if !ok {
			return
		}

		if err := st.DeleteBlock(c.Request.Context(), c.GetUint("userId"), targetID); err != nil {
			log.Printf("unblock user: %v", err)
			c.JSON(500, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(200, gin.H{"message": "User unblocked"})
	}
}
