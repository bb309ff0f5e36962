package models

import (
	"sort"
	"time"
)

// GameStatus is the lifetime of a game document as a whole, distinct
// from the sub-lifecycle of its current task.
type GameStatus string

const (
	GameActive    GameStatus = "active"
	GameExpired   GameStatus = "expired"
	GameCompleted GameStatus = "completed"
)

// GameMode affects question semantics, not scheduling.
type GameMode string

const (
	ModeClassic GameMode = "classic"
	ModeTeam    GameMode = "team"
)

// Participant is the host or one player of a live game.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
}

// OptionSnapshot is one answer option frozen at game creation.
type OptionSnapshot struct {
	OptionID uint   `json:"option_id"`
	Text     string `json:"text"`
	Correct  bool   `json:"correct"`
}

// QuestionSnapshot is one question frozen at game creation, so a live
// game is unaffected by later quiz edits.
type QuestionSnapshot struct {
	QuestionID uint             `json:"question_id"`
	Text       string           `json:"text"`
	Duration   int              `json:"duration"` // seconds
	Options    []OptionSnapshot `json:"options"`
}

// CorrectIndex returns the index of the correct option, or -1.
func (q QuestionSnapshot) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.Correct {
			return i
		}
	}
	return -1
}

// QuizSnapshot is the immutable copy of a quiz a game plays through.
type QuizSnapshot struct {
	QuizID    uint               `json:"quiz_id"`
	Title     string             `json:"title"`
	Questions []QuestionSnapshot `json:"questions"`
}

// GameDocument is the aggregate root for one live game. It is stored as
// a single JSON record and is the cross-process source of truth for task
// state. Mutations go through the locked store path only.
type GameDocument struct {
	ID            string        `json:"id"`
	GameRowID     uint          `json:"game_row_id"`
	Mode          GameMode      `json:"mode"`
	Status        GameStatus    `json:"status"`
	PIN           string        `json:"pin"`
	Host          Participant   `json:"host"`
	Players       []Participant `json:"players"`
	Quiz          QuizSnapshot  `json:"quiz"`
	CurrentTask   TaskBox       `json:"current_task"`
	PreviousTasks []TaskBox     `json:"previous_tasks"`
	Created       time.Time     `json:"created"`
	Updated       time.Time     `json:"updated"`
	Expires       time.Time     `json:"expires"`
}

// Player returns the player with the given id, or nil.
func (d *GameDocument) Player(participantID string) *Participant {
	for i := range d.Players {
		if d.Players[i].ID == participantID {
			return &d.Players[i]
		}
	}
	return nil
}

// IsParticipant reports whether the id belongs to the host or a player.
func (d *GameDocument) IsParticipant(participantID string) bool {
	return d.Host.ID == participantID || d.Player(participantID) != nil
}

// ReplaceTask archives the current task into the history and installs
// the given task as current. The history is append-only.
func (d *GameDocument) ReplaceTask(next Task) {
	if d.CurrentTask.Task != nil {
		d.PreviousTasks = append(d.PreviousTasks, d.CurrentTask)
	}
	d.CurrentTask = TaskBox{Task: next}
}

// Ranking returns players ordered by score descending, ranks assigned
// from 1. Ties share insertion order.
func (d *GameDocument) Ranking() []RankEntry {
	entries := make([]RankEntry, len(d.Players))
	for i, p := range d.Players {
		entries[i] = RankEntry{ParticipantID: p.ID, Name: p.Name, Score: p.Score}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
