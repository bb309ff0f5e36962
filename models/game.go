package models

import (
	"time"

	"gorm.io/gorm"
)

// Game is the durable row behind a live GameDocument. The row outlives
// the document's Redis TTL so finished games stay queryable for result
// aggregation.
type Game struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	DocID     string         `json:"doc_id" gorm:"uniqueIndex;not null"`
	QuizID    uint           `json:"quiz_id" gorm:"not null"`
	Pin       string         `json:"pin" gorm:"index;not null"`
	Mode      string         `json:"mode" gorm:"not null;default:'classic'"`
	Status    string         `json:"status" gorm:"not null;default:'active'"` // active, expired, completed
	StartedAt *time.Time     `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quiz    Quiz         `json:"quiz,omitempty"`
	Answers []GameAnswer `json:"answers,omitempty" gorm:"foreignKey:GameID"`
}
