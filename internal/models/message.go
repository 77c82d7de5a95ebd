package models

import "gorm.io/gorm"

// Message belongs to a TripRequest and is only visible to the requester and
// the trip owner. Content is stored sanitized.
type Message struct {
	gorm.Model
	SenderID      uint        `json:"senderId" gorm:"not null"`
	ReceiverID    uint        `json:"receiverId" gorm:"not null;index"`
	TripRequestID uint        `json:"requestId" gorm:"not null;index"`
	Content       string      `json:"content" gorm:"type:text;not null"`
	IsRead        bool        `json:"isRead" gorm:"not null;default:false"`
	Sender        User        `json:"sender" gorm:"foreignKey:SenderID"`
	TripRequest   TripRequest `json:"-" gorm:"foreignKey:TripRequestID"`
}
