package models

import (
	"time"

	"gorm.io/gorm"
)

type TripStatus string

const (
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusCancelled TripStatus = "CANCELLED"
)

type Trip struct {
	gorm.Model
	UserID       uint       `json:"userId" gorm:"not null;index"`
	Creator      User       `json:"creator" gorm:"foreignKey:UserID"`
	Destination  string     `json:"destination" gorm:"not null"`
	StartDate    time.Time  `json:"startDate" gorm:"not null"`
	EndDate      time.Time  `json:"endDate" gorm:"not null"`
	Description  string     `json:"description"`
	PeopleNeeded int        `json:"peopleNeeded" gorm:"not null;default:1"`
	Status       TripStatus `json:"status" gorm:"not null;default:'ACTIVE'"`
}
