package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	UserID      uint           `json:"user_id" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User      User       `json:"user,omitempty"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// Snapshot freezes the quiz into the immutable form a live game plays
// through. Questions and options are assumed preloaded in order.
func (q *Quiz) Snapshot() QuizSnapshot {
	snap := QuizSnapshot{QuizID: q.ID, Title: q.Title}
	for _, question := range q.Questions {
		qs := QuestionSnapshot{
			QuestionID: question.ID,
			Text:       question.Text,
			Duration:   question.Duration,
		}
		for _, opt := range question.Options {
			qs.Options = append(qs.Options, OptionSnapshot{
				OptionID: opt.ID,
				Text:     opt.Text,
				Correct:  opt.IsCorrect,
			})
		}
		snap.Questions = append(snap.Questions, qs)
	}
	return snap
}
