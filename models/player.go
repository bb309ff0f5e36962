package models

import (
	"time"

	"gorm.io/gorm"
)

// Player is the durable record of a participant who joined a game. The
// authoritative live score lives on the GameDocument; this row is
// updated as answers land so post-game queries need no Redis.
type Player struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	GameID        uint           `json:"game_id" gorm:"not null"`
	ParticipantID string         `json:"participant_id" gorm:"index;not null"`
	Name          string         `json:"name" gorm:"not null"`
	Score         int            `json:"score" gorm:"not null;default:0"`
	JoinedAt      time.Time      `json:"joined_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Game Game `json:"game,omitempty"`
}
