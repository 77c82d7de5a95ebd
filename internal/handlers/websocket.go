package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/services"
)

func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.ServeWS(hub, c.Writer, c.Request, c.GetUint("userId"))
	}
}
