package services

import (
	"quizlive/models"
)

// Event is one entry of a participant's live stream.
type Event struct {
	Type string    `json:"type"` // "state" or "heartbeat"
	Game *GameView `json:"game,omitempty"`
}

const (
	EventState     = "state"
	EventHeartbeat = "heartbeat"
)

// Envelope is the distributed wire form. An empty Recipient means
// broadcast to every local listener; an empty GameID likewise spans all
// games (heartbeats).
type Envelope struct {
	GameID    string `json:"game_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Event     Event  `json:"event"`
}

// GameView is the role-filtered projection of a game document sent to
// one participant.
type GameView struct {
	ID             string             `json:"id"`
	PIN            string             `json:"pin"`
	Mode           models.GameMode    `json:"mode"`
	Status         models.GameStatus  `json:"status"`
	Title          string             `json:"title"`
	TotalQuestions int                `json:"total_questions"`
	Players        []ParticipantView  `json:"players"`
	You            *ParticipantView   `json:"you,omitempty"`
	Task           TaskView           `json:"task"`
}

type ParticipantView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Streak int    `json:"streak"`
}

// TaskView is the per-role projection of the current task. Fields that
// would reveal in-flight answers or the correct option are nil for
// players until a result-revealing status.
type TaskView struct {
	Type          models.TaskType                `json:"type"`
	Status        models.TaskStatus              `json:"status"`
	Index         int                            `json:"index,omitempty"`
	Question      *QuestionView                  `json:"question,omitempty"`
	CorrectOption *int                           `json:"correct_option,omitempty"`
	Answers       map[string]models.PlayerAnswer `json:"answers,omitempty"`
	AnswerCount   int                            `json:"answer_count,omitempty"`
	Results       []models.PlayerResult          `json:"results,omitempty"`
	Ranking       []models.RankEntry             `json:"ranking,omitempty"`
}

type QuestionView struct {
	Text     string   `json:"text"`
	Duration int      `json:"duration"`
	Options  []string `json:"options"`
}

// HostView projects the document for the host: full task metadata,
// every in-flight answer, the correct option at all times.
func HostView(doc *models.GameDocument) *GameView {
	view := baseView(doc)
	view.Task = taskView(doc, true, "")
	return view
}

// PlayerView projects the document for one player. It never contains
// another player's in-flight answer nor the correct option before the
// task reaches a result-revealing status.
func PlayerView(doc *models.GameDocument, participantID string) *GameView {
	view := baseView(doc)
	if p := doc.Player(participantID); p != nil {
		you := ParticipantView(*p)
		view.You = &you
	}
	view.Task = taskView(doc, false, participantID)
	return view
}

func baseView(doc *models.GameDocument) *GameView {
	view := &GameView{
		ID:             doc.ID,
		PIN:            doc.PIN,
		Mode:           doc.Mode,
		Status:         doc.Status,
		Title:          doc.Quiz.Title,
		TotalQuestions: len(doc.Quiz.Questions),
	}
	for _, p := range doc.Players {
		view.Players = append(view.Players, ParticipantView(p))
	}
	return view
}

func taskView(doc *models.GameDocument, host bool, participantID string) TaskView {
	task := doc.CurrentTask.Task
	if task == nil {
		return TaskView{}
	}
	view := TaskView{Type: task.Type(), Status: task.Status()}

	switch t := task.(type) {
	case *models.QuestionTask:
		view.Index = t.Index
		view.Question = questionView(doc, t.Index)
		view.AnswerCount = len(t.Answers)
		if host {
			view.Answers = t.Answers
			if t.Index < len(doc.Quiz.Questions) {
				correct := doc.Quiz.Questions[t.Index].CorrectIndex()
				view.CorrectOption = &correct
			}
		} else if answer, ok := t.Answers[participantID]; ok {
			// A player sees only that their own answer landed, not
			// whether it was correct.
			view.Answers = map[string]models.PlayerAnswer{
				participantID: {OptionIndex: answer.OptionIndex, TimeSpentMS: answer.TimeSpentMS},
			}
		}
	case *models.QuestionResultTask:
		view.Index = t.Index
		view.Question = questionView(doc, t.Index)
		correct := t.CorrectOption
		view.CorrectOption = &correct
		if host {
			view.Results = t.Results
		} else {
			for _, r := range t.Results {
				if r.ParticipantID == participantID {
					view.Results = []models.PlayerResult{r}
					break
				}
			}
		}
	case *models.LeaderboardTask:
		view.Index = t.Index
		view.Ranking = t.Ranking
	case *models.PodiumTask:
		view.Ranking = t.Ranking
	}
	return view
}

func questionView(doc *models.GameDocument, index int) *QuestionView {
	if index >= len(doc.Quiz.Questions) {
		return nil
	}
	q := doc.Quiz.Questions[index]
	view := &QuestionView{Text: q.Text, Duration: q.Duration}
	for _, opt := range q.Options {
		view.Options = append(view.Options, opt.Text)
	}
	return view
}
