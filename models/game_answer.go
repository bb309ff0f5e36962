package models

import (
	"time"

	"gorm.io/gorm"
)

// GameAnswer is the durable record of one submitted answer, written at
// submission time alongside the locked document mutation.
type GameAnswer struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	GameID        uint           `json:"game_id" gorm:"not null"`
	ParticipantID string         `json:"participant_id" gorm:"index;not null"`
	QuestionID    uint           `json:"question_id" gorm:"not null"`
	OptionID      uint           `json:"option_id" gorm:"not null"`
	IsCorrect     bool           `json:"is_correct" gorm:"not null"`
	TimeSpentMS   int            `json:"time_spent_ms" gorm:"not null"`
	Points        int            `json:"points" gorm:"not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Game Game `json:"game,omitempty"`
}
