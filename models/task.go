package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskType identifies one phase of a game's lifecycle.
type TaskType string

const (
	TaskLobby          TaskType = "lobby"
	TaskQuestion       TaskType = "question"
	TaskQuestionResult TaskType = "question_result"
	TaskLeaderboard    TaskType = "leaderboard"
	TaskPodium         TaskType = "podium"
	TaskQuit           TaskType = "quit"
)

// TaskStatus is the sub-lifecycle of a single task instance.
// It only ever moves forward: pending -> active -> completed.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// Task is the tagged union of all task variants. Exactly one task is
// current on a game document at any time; transitioning to a new task
// type replaces the value wholesale.
type Task interface {
	Type() TaskType
	Status() TaskStatus
	SetStatus(TaskStatus)
}

// TaskMeta carries the shared sub-lifecycle fields of every variant.
type TaskMeta struct {
	State TaskStatus `json:"status"`
	Since time.Time  `json:"since"`
}

func (m *TaskMeta) Status() TaskStatus { return m.State }

func (m *TaskMeta) SetStatus(s TaskStatus) {
	m.State = s
	m.Since = time.Now().UTC()
}

// LobbyTask is the waiting room before the first question.
type LobbyTask struct {
	TaskMeta
}

func (*LobbyTask) Type() TaskType { return TaskLobby }

// PlayerAnswer is one player's in-flight answer to the current question.
// Correct and Points are computed at submission time but must not be
// shown to players until the question result is revealed.
type PlayerAnswer struct {
	OptionIndex int  `json:"option_index"`
	TimeSpentMS int  `json:"time_spent_ms"`
	Correct     bool `json:"correct"`
	Points      int  `json:"points"`
}

// QuestionTask presents one question of the quiz snapshot.
type QuestionTask struct {
	TaskMeta
	Index   int                     `json:"index"`
	Answers map[string]PlayerAnswer `json:"answers,omitempty"`
}

func (*QuestionTask) Type() TaskType { return TaskQuestion }

// PlayerResult is one player's outcome for a finished question.
type PlayerResult struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	OptionIndex   int    `json:"option_index"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	TimeSpentMS   int    `json:"time_spent_ms"`
}

// QuestionResultTask reveals the correct option and per-player outcomes.
type QuestionResultTask struct {
	TaskMeta
	Index         int            `json:"index"`
	CorrectOption int            `json:"correct_option"`
	Results       []PlayerResult `json:"results"`
}

func (*QuestionResultTask) Type() TaskType { return TaskQuestionResult }

// RankEntry is one row of a computed ranking.
type RankEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// LeaderboardTask shows the interim standings between questions.
type LeaderboardTask struct {
	TaskMeta
	Index   int         `json:"index"`
	Ranking []RankEntry `json:"ranking"`
}

func (*LeaderboardTask) Type() TaskType { return TaskLeaderboard }

// PodiumTask shows the final standings after the last question.
type PodiumTask struct {
	TaskMeta
	Ranking []RankEntry `json:"ranking"`
}

func (*PodiumTask) Type() TaskType { return TaskPodium }

// QuitTask marks a game the host abandoned.
type QuitTask struct {
	TaskMeta
}

func (*QuitTask) Type() TaskType { return TaskQuit }

// TaskBox wraps a Task for JSON round-tripping through the document
// store. The wire form is {"type": ..., "task": {...}}.
type TaskBox struct {
	Task Task
}

type taskEnvelope struct {
	Type TaskType        `json:"type"`
	Task json.RawMessage `json:"task"`
}

func (b TaskBox) MarshalJSON() ([]byte, error) {
	if b.Task == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(b.Task)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taskEnvelope{Type: b.Task.Type(), Task: payload})
}

func (b *TaskBox) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Task = nil
		return nil
	}
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	var task Task
	switch env.Type {
	case TaskLobby:
		task = &LobbyTask{}
	case TaskQuestion:
		task = &QuestionTask{}
	case TaskQuestionResult:
		task = &QuestionResultTask{}
	case TaskLeaderboard:
		task = &LeaderboardTask{}
	case TaskPodium:
		task = &PodiumTask{}
	case TaskQuit:
		task = &QuitTask{}
	default:
		return fmt.Errorf("unknown task type %q", env.Type)
	}
	if err := json.Unmarshal(env.Task, task); err != nil {
		return err
	}
	b.Task = task
	return nil
}

// NewTask returns a fresh task of the given variant at pending status.
func NewTask(t TaskType) Task {
	var task Task
	switch t {
	case TaskLobby:
		task = &LobbyTask{}
	case TaskQuestion:
		task = &QuestionTask{Answers: map[string]PlayerAnswer{}}
	case TaskQuestionResult:
		task = &QuestionResultTask{}
	case TaskLeaderboard:
		task = &LeaderboardTask{}
	case TaskPodium:
		task = &PodiumTask{}
	case TaskQuit:
		task = &QuitTask{}
	default:
		panic(fmt.Sprintf("unknown task type %q", t))
	}
	task.SetStatus(TaskPending)
	return task
}
