package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quizlive/models"
)

var (
	// ErrTaskAlreadyCompleted flags an attempt to schedule a task that
	// already finished its lifecycle. Programming error: a completed
	// task must be replaced before anything is scheduled again.
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	// ErrInvalidTransition flags a (type, status) pair with no
	// transition table entry.
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrGameNotActive stops transitions on expired or completed games.
	ErrGameNotActive = errors.New("game is not active")
)

// Publisher fans a state change out to all participants. Failures are
// the publisher's problem; persisted state never rolls back over them.
type Publisher interface {
	Publish(ctx context.Context, doc *models.GameDocument)
}

// SchedulerDelays are the fixed phase durations of the task lifecycle.
// Question active time comes from the quiz snapshot instead.
type SchedulerDelays struct {
	LobbyCountdown      time.Duration // lobby pending -> active
	LobbyDuration       time.Duration // lobby active -> first question
	QuestionIntro       time.Duration // question pending -> active
	ResultDuration      time.Duration // result active -> leaderboard/podium
	LeaderboardDuration time.Duration // leaderboard active -> next question
}

func DefaultSchedulerDelays() SchedulerDelays {
	return SchedulerDelays{
		LobbyCountdown:      3 * time.Second,
		LobbyDuration:       10 * time.Second,
		QuestionIntro:       3 * time.Second,
		ResultDuration:      8 * time.Second,
		LeaderboardDuration: 8 * time.Second,
	}
}

type taskKey struct {
	Type   models.TaskType
	Status models.TaskStatus
}

// transitionRule governs leaving one (type, status) state. A nil delay
// means the state has no automatic timeout and waits for an external
// trigger (host next). The callback runs inside the locked mutation,
// after the status step, and may replace the current task wholesale; it
// must not perform I/O.
type transitionRule struct {
	delay    func(*models.GameDocument) time.Duration
	callback func(*models.GameDocument)
}

// TaskScheduler advances a game's current task through its lifecycle,
// either immediately or via a deferred timer. All mutations go through
// the locked store path; the timer registry's stable per-game name
// guarantees at most one deferred transition is outstanding per game.
type TaskScheduler struct {
	store     *GameStore
	timers    *TimerRegistry
	publisher Publisher
	delays    SchedulerDelays
	table     map[taskKey]transitionRule
}

func NewTaskScheduler(store *GameStore, timers *TimerRegistry, publisher Publisher, delays SchedulerDelays) *TaskScheduler {
	s := &TaskScheduler{
		store:     store,
		timers:    timers,
		publisher: publisher,
		delays:    delays,
	}
	s.table = s.buildTable()
	return s
}

func (s *TaskScheduler) buildTable() map[taskKey]transitionRule {
	fixed := func(d time.Duration) func(*models.GameDocument) time.Duration {
		return func(*models.GameDocument) time.Duration { return d }
	}
	return map[taskKey]transitionRule{
		{models.TaskLobby, models.TaskPending}: {delay: fixed(s.delays.LobbyCountdown)},
		{models.TaskLobby, models.TaskActive}: {
			delay:    fixed(s.delays.LobbyDuration),
			callback: installQuestion(0),
		},
		{models.TaskQuestion, models.TaskPending}: {delay: fixed(s.delays.QuestionIntro)},
		{models.TaskQuestion, models.TaskActive}: {
			delay:    questionDuration,
			callback: installQuestionResult,
		},
		{models.TaskQuestionResult, models.TaskPending}: {delay: fixed(0)},
		{models.TaskQuestionResult, models.TaskActive}: {
			delay:    fixed(s.delays.ResultDuration),
			callback: installRankingOrPodium,
		},
		{models.TaskLeaderboard, models.TaskPending}: {delay: fixed(0)},
		{models.TaskLeaderboard, models.TaskActive}: {
			delay:    fixed(s.delays.LeaderboardDuration),
			callback: installNextQuestion,
		},
		{models.TaskPodium, models.TaskPending}: {delay: fixed(0)},
		// Podium stays up until the host dismisses it.
		{models.TaskPodium, models.TaskActive}: {callback: completeGame},
		{models.TaskQuit, models.TaskPending}:  {delay: fixed(0)},
		{models.TaskQuit, models.TaskActive}:   {},
	}
}

func timerName(gameID string) string { return "task:" + gameID }

// ScheduleTaskTransition ensures the document's current task eventually
// (or immediately) advances one status step. The passed document is a
// snapshot used only for the table lookup and delay resolution; the
// transition itself re-loads the latest persisted state under the lock.
func (s *TaskScheduler) ScheduleTaskTransition(ctx context.Context, doc *models.GameDocument) error {
	task := doc.CurrentTask.Task
	if task == nil {
		log.Printf("Game %s has no current task to schedule", doc.ID)
		return ErrInvalidTransition
	}
	if task.Status() == models.TaskCompleted {
		log.Printf("Refusing to schedule completed %s task for game %s", task.Type(), doc.ID)
		return fmt.Errorf("game %s, task %s: %w", doc.ID, task.Type(), ErrTaskAlreadyCompleted)
	}
	rule, ok := s.table[taskKey{task.Type(), task.Status()}]
	if !ok {
		log.Printf("No transition table entry for game %s: (%s, %s)", doc.ID, task.Type(), task.Status())
		return fmt.Errorf("(%s, %s): %w", task.Type(), task.Status(), ErrInvalidTransition)
	}
	if rule.delay == nil {
		// State has no timeout; an external trigger advances it.
		return nil
	}

	delay := rule.delay(doc)
	if delay <= 0 {
		return s.performTransition(ctx, doc.ID)
	}
	gameID := doc.ID
	s.timers.Replace(timerName(gameID), delay, func() {
		if err := s.performTransition(context.Background(), gameID); err != nil {
			log.Printf("Deferred transition failed for game %s: %v", gameID, err)
		}
	})
	return nil
}

// AdvanceNow fast-forwards the current task one status step, superseding
// any pending deferred timer. This is the "host requested next" path.
func (s *TaskScheduler) AdvanceNow(ctx context.Context, gameID string) (*models.GameDocument, error) {
	s.timers.Cancel(timerName(gameID))
	return s.transitionAndChain(ctx, gameID)
}

func (s *TaskScheduler) performTransition(ctx context.Context, gameID string) error {
	_, err := s.transitionAndChain(ctx, gameID)
	return err
}

// transitionAndChain applies one status step under the lock, publishes
// the new state, and keeps the chain going for non-terminal outcomes.
func (s *TaskScheduler) transitionAndChain(ctx context.Context, gameID string) (*models.GameDocument, error) {
	updated, err := s.store.FindAndSaveWithLock(ctx, gameID, func(doc *models.GameDocument) error {
		if doc.Status != models.GameActive {
			return fmt.Errorf("game %s: %w", gameID, ErrGameNotActive)
		}
		task := doc.CurrentTask.Task
		if task == nil {
			return fmt.Errorf("game %s: %w", gameID, ErrInvalidTransition)
		}
		if task.Status() == models.TaskCompleted {
			log.Printf("Transition requested for completed %s task in game %s", task.Type(), gameID)
			return fmt.Errorf("game %s, task %s: %w", gameID, task.Type(), ErrTaskAlreadyCompleted)
		}
		rule, ok := s.table[taskKey{task.Type(), task.Status()}]
		if !ok {
			log.Printf("No transition table entry for game %s: (%s, %s)", gameID, task.Type(), task.Status())
			return fmt.Errorf("(%s, %s): %w", task.Type(), task.Status(), ErrInvalidTransition)
		}

		switch task.Status() {
		case models.TaskPending:
			task.SetStatus(models.TaskActive)
		case models.TaskActive:
			task.SetStatus(models.TaskCompleted)
		}
		if rule.callback != nil {
			rule.callback(doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, updated)
	}

	// Chain: fresh pending tasks and timed active phases schedule
	// themselves; a task left at completed is terminal for the game.
	if task := updated.CurrentTask.Task; task != nil && task.Status() != models.TaskCompleted {
		if err := s.ScheduleTaskTransition(ctx, updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// CancelTimers drops any deferred transition for the game (quit, sweep).
func (s *TaskScheduler) CancelTimers(gameID string) {
	s.timers.Cancel(timerName(gameID))
}

// --- transition callbacks; pure document mutators, no I/O ---

func installQuestion(index int) func(*models.GameDocument) {
	return func(doc *models.GameDocument) {
		task := models.NewTask(models.TaskQuestion).(*models.QuestionTask)
		task.Index = index
		doc.ReplaceTask(task)
	}
}

func questionDuration(doc *models.GameDocument) time.Duration {
	task, ok := doc.CurrentTask.Task.(*models.QuestionTask)
	if !ok || task.Index >= len(doc.Quiz.Questions) {
		return 0
	}
	return time.Duration(doc.Quiz.Questions[task.Index].Duration) * time.Second
}

// installQuestionResult turns the answers gathered during the question
// into the revealed per-player results.
func installQuestionResult(doc *models.GameDocument) {
	question, ok := doc.CurrentTask.Task.(*models.QuestionTask)
	if !ok {
		return
	}
	result := models.NewTask(models.TaskQuestionResult).(*models.QuestionResultTask)
	result.Index = question.Index
	if question.Index < len(doc.Quiz.Questions) {
		result.CorrectOption = doc.Quiz.Questions[question.Index].CorrectIndex()
	}
	for _, p := range doc.Players {
		answer, answered := question.Answers[p.ID]
		if !answered {
			continue
		}
		result.Results = append(result.Results, models.PlayerResult{
			ParticipantID: p.ID,
			Name:          p.Name,
			OptionIndex:   answer.OptionIndex,
			Correct:       answer.Correct,
			Points:        answer.Points,
			TimeSpentMS:   answer.TimeSpentMS,
		})
	}
	doc.ReplaceTask(result)
}

// installRankingOrPodium follows a question result with the interim
// leaderboard, or the podium after the final question.
func installRankingOrPodium(doc *models.GameDocument) {
	result, ok := doc.CurrentTask.Task.(*models.QuestionResultTask)
	if !ok {
		return
	}
	if result.Index+1 >= len(doc.Quiz.Questions) {
		podium := models.NewTask(models.TaskPodium).(*models.PodiumTask)
		podium.Ranking = doc.Ranking()
		doc.ReplaceTask(podium)
		return
	}
	board := models.NewTask(models.TaskLeaderboard).(*models.LeaderboardTask)
	board.Index = result.Index
	board.Ranking = doc.Ranking()
	doc.ReplaceTask(board)
}

func installNextQuestion(doc *models.GameDocument) {
	board, ok := doc.CurrentTask.Task.(*models.LeaderboardTask)
	if !ok {
		return
	}
	installQuestion(board.Index + 1)(doc)
}

func completeGame(doc *models.GameDocument) {
	doc.Status = models.GameCompleted
}
