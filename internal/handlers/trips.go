package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripmates/tripmates-backend/internal/services"
	"github.com/tripmates/tripmates-backend/internal/store"
)

type CreateTripInput struct {
	Destination  string    `json:"destination" binding:"required"`
	StartDate    time.Time `json:"startDate" binding:"required"`
	EndDate      time.Time `json:"endDate" binding:"required"`
	Description  string    `json:"description"`
	PeopleNeeded int       `json:"peopleNeeded" binding:"required,min=1"`
}

type UpdateTripInput struct {
	Destination  *string    `json:"destination"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	Description  *string    `json:"description"`
	PeopleNeeded *int       `json:"peopleNeeded"`
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func CreateTrip(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input CreateTripInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		trip, err := svc.CreateTrip(c.Request.Context(), userID, services.CreateTripInput{
			Destination:  input.Destination,
			StartDate:    input.StartDate,
			EndDate:      input.EndDate,
			Description:  input.Description,
			PeopleNeeded: input.PeopleNeeded,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, trip)
	}
}

func GetTrips(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		trips, total, err := svc.ListTrips(c.Request.Context(), store.TripFilter{
			Destination: c.Query("destination"),
			StartAfter:  c.Query("startDate"),
			StartBefore: c.Query("endDate"),
			Page:        page,
			Limit:       limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"trips": trips,
			"total": total,
			"page":  page,
			"limit": limit,
		})
	}
}

func GetMyTrips(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		trips, err := svc.GetMyTrips(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, trips)
	}
}

func GetTrip(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		trip, err := svc.GetTrip(c.Request.Context(), tripID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, trip)
	}
}

func UpdateTrip(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		var input UpdateTripInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		trip, err := svc.UpdateTrip(c.Request.Context(), tripID, c.GetUint("userId"), services.UpdateTripInput{
			Destination:  input.Destination,
			StartDate:    input.StartDate,
			EndDate:      input.EndDate,
			Description:  input.Description,
			PeopleNeeded: input.PeopleNeeded,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, trip)
	}
}

func DeleteTrip(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}
		force := c.Query("force") == "true"

		notified, err := svc.DeleteTrip(c.Request.Context(), tripID, c.GetUint("userId"), force)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"message":              "Trip deleted successfully",
			"notifiedParticipants": notified,
		})
	}
}

func CancelTrip(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseID(c, "id")
		if !ok {
			return
		}

		trip, err := svc.CancelTrip(c.Request.Context(), tripID, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, trip)
	}
}
