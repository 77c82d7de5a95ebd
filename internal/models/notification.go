package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTripRequest     NotificationType = "TRIP_REQUEST"
	NotificationRequestAccepted NotificationType = "REQUEST_ACCEPTED"
	NotificationRequestRejected NotificationType = "REQUEST_REJECTED"
	NotificationTripUpdate      NotificationType = "TRIP_UPDATE"
	NotificationNewMessage      NotificationType = "NEW_MESSAGE"
)

type Notification struct {
	gorm.Model
	UserID uint             `json:"userId" gorm:"not null;index"`
	Type   NotificationType `json:"type" gorm:"not null"`
	Title  string           `json:"title" gorm:"not null"`
	Body   string           `json:"body" gorm:"not null"`
	Data   json.RawMessage  `json:"data" gorm:"type:jsonb"`
	IsRead bool             `json:"isRead" gorm:"not null;default:false"`
}

// NotificationData is the typed payload attached to a notification. Each
// notification type has its own variant; the sink marshals it into Data.
type NotificationData interface {
	NotificationType() NotificationType
}

type TripRequestData struct {
	RequestID   uint `json:"requestId"`
	TripID      uint `json:"tripId"`
	RequesterID uint `json:"requesterId"`
}

func (TripRequestData) NotificationType() NotificationType { return NotificationTripRequest }

type RequestAcceptedData struct {
	RequestID uint `json:"requestId"`
	TripID    uint `json:"tripId"`
}

func (RequestAcceptedData) NotificationType() NotificationType { return NotificationRequestAccepted }

type RequestRejectedData struct {
	RequestID uint `json:"requestId"`
	TripID    uint `json:"tripId"`
}

func (RequestRejectedData) NotificationType() NotificationType { return NotificationRequestRejected }

type TripUpdateData struct {
	TripID uint `json:"tripId"`
	// Action is "updated", "cancelled" or "deleted".
	Action  string   `json:"action"`
	Changes []string `json:"changes,omitempty"`
}

func (TripUpdateData) NotificationType() NotificationType { return NotificationTripUpdate }

type NewMessageData struct {
	MessageID uint `json:"messageId"`
	RequestID uint `json:"requestId"`
	SenderID  uint `json:"senderId"`
}

func (NewMessageData) NotificationType() NotificationType { return NotificationNewMessage }
