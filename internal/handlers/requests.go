package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/models"
	"github.com/tripmates/tripmates-backend/internal/services"
)

type CreateRequestInput struct {
	Message string `json:"message"`
}

type RespondRequestInput struct {
	Status string `json:"status" binding:"required"`
}

func CreateRequest(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var input CreateRequestInput
		if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		request, err := svc.CreateRequest(c.Request.Context(), tripID, c.GetUint("userId"), input.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, request)
	}
}

func GetRequestsForTrip(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		requests, err := svc.GetRequestsForTrip(c.Request.Context(), tripID, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, requests)
	}
}

func GetMyRequestForTrip(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		request, err := svc.GetRequestByTripAndUser(c.Request.Context(), tripID, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, request)
	}
}

func RespondToRequest(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var input RespondRequestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		request, err := svc.RespondToRequest(c.Request.Context(), requestID, c.GetUint("userId"), models.RequestStatus(input.Status))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, request)
	}
}

func GetSentRequests(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := svc.GetSentRequests(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, requests)
	}
}

func GetReceivedRequests(svc *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := svc.GetReceivedRequests(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, requests)
	}
}
