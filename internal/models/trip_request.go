package models

import "gorm.io/gorm"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// TripRequest is a join request from a user to someone else's trip. A user can
// have at most one request per trip, enforced by the composite unique index.
type TripRequest struct {
	gorm.Model
	TripID      uint          `json:"tripId" gorm:"not null;uniqueIndex:idx_trip_requester"`
	RequesterID uint          `json:"requesterId" gorm:"not null;uniqueIndex:idx_trip_requester"`
	Status      RequestStatus `json:"status" gorm:"not null;default:'PENDING'"`
	Message     string        `json:"message"`
	Trip        Trip          `json:"trip" gorm:"foreignKey:TripID"`
	Requester   User          `json:"requester" gorm:"foreignKey:RequesterID"`
}
