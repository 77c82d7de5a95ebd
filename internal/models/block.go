package models

import "gorm.io/gorm"

// Block in either direction between two users vetoes request creation,
// conversation joining and messaging between them.
type Block struct {
	gorm.Model
	BlockerID uint `json:"blockerId" gorm:"not null;uniqueIndex:idx_blocker_blocked"`
	BlockedID uint `json:"blockedId" gorm:"not null;uniqueIndex:idx_blocker_blocked"`
}
