package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"quizlive/models"

	"gorm.io/gorm"
)

var (
	// ErrNotHost guards host-only operations.
	ErrNotHost = errors.New("only the host may do that")
	// ErrNameTaken means the nickname is already used in this game.
	ErrNameTaken = errors.New("player name already taken")
)

// GameService implements the external triggers of the game lifecycle:
// create, join, leave, start, next, answer, quit, sweep. Every mutation
// goes through the locked store path, then publish, then (re)schedule
// where a lifecycle step begins.
type GameService struct {
	db        *gorm.DB
	store     *GameStore
	scheduler *TaskScheduler
	publisher Publisher
	docTTL    time.Duration
}

func NewGameService(db *gorm.DB, store *GameStore, scheduler *TaskScheduler, publisher Publisher, docTTL time.Duration) *GameService {
	return &GameService{
		db:        db,
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		docTTL:    docTTL,
	}
}

type CreateGameRequest struct {
	QuizID uint   `json:"quiz_id" binding:"required"`
	Mode   string `json:"mode"`
}

type JoinGameRequest struct {
	Pin  string `json:"pin" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type SubmitAnswerRequest struct {
	OptionIndex int `json:"option_index"`
	TimeSpentMS int `json:"time_spent_ms"`
}

// CreateGame snapshots the quiz, allocates a unique pin, and persists a
// fresh document with a pending lobby. Nothing is scheduled until the
// host starts the game.
func (s *GameService) CreateGame(ctx context.Context, userID uint, req *CreateGameRequest) (*models.GameDocument, error) {
	var quiz models.Quiz
	if err := s.db.Where("id = ? AND user_id = ?", req.QuizID, userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.order")
		}).
		First(&quiz).Error; err != nil {
		return nil, errors.New("quiz not found")
	}
	if len(quiz.Questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}

	pin, err := s.allocatePin(ctx)
	if err != nil {
		return nil, err
	}

	mode := models.GameMode(req.Mode)
	if mode == "" {
		mode = models.ModeClassic
	}
	now := time.Now().UTC()
	doc := &models.GameDocument{
		ID:          newID(),
		Mode:        mode,
		Status:      models.GameActive,
		PIN:         pin,
		Host:        models.Participant{ID: newID(), Name: "host"},
		Quiz:        quiz.Snapshot(),
		CurrentTask: models.TaskBox{Task: models.NewTask(models.TaskLobby)},
		Created:     now,
		Expires:     now.Add(s.docTTL),
	}

	row := models.Game{
		DocID:  doc.ID,
		QuizID: quiz.ID,
		Pin:    pin,
		Mode:   string(mode),
		Status: string(models.GameActive),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, err
	}
	doc.GameRowID = row.ID

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Join adds a player while the lobby is open. Returns the updated
// document and the new participant.
func (s *GameService) Join(ctx context.Context, req *JoinGameRequest) (*models.GameDocument, *models.Participant, error) {
	found, err := s.store.FindByPin(ctx, req.Pin)
	if err != nil {
		return nil, nil, err
	}

	participant := models.Participant{ID: newID(), Name: req.Name}
	doc, err := s.store.FindAndSaveWithLock(ctx, found.ID, func(doc *models.GameDocument) error {
		if doc.Status != models.GameActive {
			return fmt.Errorf("game %s: %w", doc.ID, ErrGameNotActive)
		}
		task := doc.CurrentTask.Task
		if task == nil || task.Type() != models.TaskLobby || task.Status() == models.TaskCompleted {
			return errors.New("game already started - cannot join")
		}
		for _, p := range doc.Players {
			if p.Name == req.Name {
				return ErrNameTaken
			}
		}
		doc.Players = append(doc.Players, participant)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	row := models.Player{
		GameID:        doc.GameRowID,
		ParticipantID: participant.ID,
		Name:          participant.Name,
		JoinedAt:      time.Now().UTC(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("Failed to record player %s for game %s: %v", participant.ID, doc.ID, err)
	}

	s.publisher.Publish(ctx, doc)
	return doc, &participant, nil
}

// Leave removes a player from the game.
func (s *GameService) Leave(ctx context.Context, gameID, participantID string) error {
	doc, err := s.store.FindAndSaveWithLock(ctx, gameID, func(doc *models.GameDocument) error {
		for i, p := range doc.Players {
			if p.ID == participantID {
				doc.Players = append(doc.Players[:i], doc.Players[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("player %s in game %s: %w", participantID, gameID, ErrParticipantNotFound)
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(ctx, doc)
	return nil
}

// Start kicks the pending lobby into the scheduler; from there the task
// chain advances on its own timers.
func (s *GameService) Start(ctx context.Context, gameID, hostID string) error {
	doc, err := s.store.Find(ctx, gameID)
	if err != nil {
		return err
	}
	if doc.Host.ID != hostID {
		return ErrNotHost
	}
	task := doc.CurrentTask.Task
	if task == nil || task.Type() != models.TaskLobby || task.Status() != models.TaskPending {
		return errors.New("game already started")
	}

	now := time.Now().UTC()
	if err := s.db.Model(&models.Game{}).Where("doc_id = ?", gameID).
		Update("started_at", now).Error; err != nil {
		log.Printf("Failed to record start time for game %s: %v", gameID, err)
	}

	log.Printf("Game %s started by host, lobby countdown begins", gameID)
	return s.scheduler.ScheduleTaskTransition(ctx, doc)
}

// Next fast-forwards the current task one step, superseding any pending
// timer. Host only.
func (s *GameService) Next(ctx context.Context, gameID, hostID string) error {
	doc, err := s.store.Find(ctx, gameID)
	if err != nil {
		return err
	}
	if doc.Host.ID != hostID {
		return ErrNotHost
	}
	updated, err := s.scheduler.AdvanceNow(ctx, gameID)
	if err != nil {
		return err
	}
	if updated.Status == models.GameCompleted {
		s.finishRow(gameID, models.GameCompleted)
	}
	return nil
}

// SubmitAnswer records one player's answer to the active question and
// applies scoring under the lock. When every player has answered, the
// question completes early.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, participantID string, req *SubmitAnswerRequest) error {
	var recorded models.PlayerAnswer
	var questionID, optionID uint
	allAnswered := false

	doc, err := s.store.FindAndSaveWithLock(ctx, gameID, func(doc *models.GameDocument) error {
		if doc.Status != models.GameActive {
			return fmt.Errorf("game %s: %w", gameID, ErrGameNotActive)
		}
		task, ok := doc.CurrentTask.Task.(*models.QuestionTask)
		if !ok || task.Status() != models.TaskActive {
			return errors.New("no question is accepting answers")
		}
		player := doc.Player(participantID)
		if player == nil {
			return fmt.Errorf("player %s in game %s: %w", participantID, gameID, ErrParticipantNotFound)
		}
		if _, dup := task.Answers[participantID]; dup {
			return errors.New("answer already submitted")
		}

		question := doc.Quiz.Questions[task.Index]
		if req.OptionIndex < 0 || req.OptionIndex >= len(question.Options) {
			return errors.New("option index out of range")
		}
		correct := question.Options[req.OptionIndex].Correct
		if correct {
			player.Streak++
		} else {
			player.Streak = 0
		}
		points := scorePoints(req.TimeSpentMS, question.Duration, correct, player.Streak)
		player.Score += points

		recorded = models.PlayerAnswer{
			OptionIndex: req.OptionIndex,
			TimeSpentMS: req.TimeSpentMS,
			Correct:     correct,
			Points:      points,
		}
		if task.Answers == nil {
			task.Answers = map[string]models.PlayerAnswer{}
		}
		task.Answers[participantID] = recorded
		allAnswered = len(doc.Players) > 0 && len(task.Answers) >= len(doc.Players)

		questionID = question.QuestionID
		optionID = question.Options[req.OptionIndex].OptionID
		return nil
	})
	if err != nil {
		return err
	}

	answerRow := models.GameAnswer{
		GameID:        doc.GameRowID,
		ParticipantID: participantID,
		QuestionID:    questionID,
		OptionID:      optionID,
		IsCorrect:     recorded.Correct,
		TimeSpentMS:   recorded.TimeSpentMS,
		Points:        recorded.Points,
	}
	if err := s.db.Create(&answerRow).Error; err != nil {
		log.Printf("Failed to record answer for player %s in game %s: %v", participantID, gameID, err)
	}
	if err := s.db.Model(&models.Player{}).
		Where("game_id = ? AND participant_id = ?", doc.GameRowID, participantID).
		Update("score", gorm.Expr("score + ?", recorded.Points)).Error; err != nil {
		log.Printf("Failed to update score row for player %s in game %s: %v", participantID, gameID, err)
	}

	s.publisher.Publish(ctx, doc)

	if allAnswered {
		log.Printf("All players answered in game %s, completing question early", gameID)
		if _, err := s.scheduler.AdvanceNow(ctx, gameID); err != nil {
			log.Printf("Early question completion failed for game %s: %v", gameID, err)
		}
	}
	return nil
}

// Quit abandons the game: the quit task replaces whatever was current
// and the document is marked completed. Host only.
func (s *GameService) Quit(ctx context.Context, gameID, hostID string) error {
	doc, err := s.store.FindAndSaveWithLock(ctx, gameID, func(doc *models.GameDocument) error {
		if doc.Host.ID != hostID {
			return ErrNotHost
		}
		quit := models.NewTask(models.TaskQuit)
		quit.SetStatus(models.TaskActive)
		doc.ReplaceTask(quit)
		doc.Status = models.GameCompleted
		return nil
	})
	if err != nil {
		return err
	}

	s.scheduler.CancelTimers(gameID)
	s.publisher.Publish(ctx, doc)
	s.finishRow(gameID, models.GameCompleted)
	return nil
}

// SweepExpired walks active game rows and retires those whose document
// has expired or vanished. Shares the store with the scheduler but runs
// on its own cadence.
func (s *GameService) SweepExpired(ctx context.Context) {
	var rows []models.Game
	if err := s.db.Where("status = ?", string(models.GameActive)).Find(&rows).Error; err != nil {
		log.Printf("Sweep: failed to list active games: %v", err)
		return
	}
	now := time.Now().UTC()
	for _, row := range rows {
		doc, err := s.store.Find(ctx, row.DocID)
		if errors.Is(err, ErrGameNotFound) {
			s.finishRow(row.DocID, models.GameExpired)
			continue
		}
		if err != nil {
			log.Printf("Sweep: failed to load game %s: %v", row.DocID, err)
			continue
		}
		if doc.Status == models.GameCompleted {
			s.finishRow(row.DocID, models.GameCompleted)
			continue
		}
		if now.Before(doc.Expires) {
			continue
		}
		expired, err := s.store.FindAndSaveWithLock(ctx, row.DocID, func(doc *models.GameDocument) error {
			doc.Status = models.GameExpired
			return nil
		})
		if err != nil {
			log.Printf("Sweep: failed to expire game %s: %v", row.DocID, err)
			continue
		}
		s.scheduler.CancelTimers(row.DocID)
		s.publisher.Publish(ctx, expired)
		if err := s.store.Delete(ctx, expired); err != nil {
			log.Printf("Sweep: failed to delete game %s: %v", row.DocID, err)
		}
		s.finishRow(row.DocID, models.GameExpired)
		log.Printf("Sweep: game %s expired", row.DocID)
	}
}

// GetGame is the unlocked read path for non-mutating views.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*models.GameDocument, error) {
	return s.store.Find(ctx, gameID)
}

// GetGameByPin resolves a join code for lobby screens.
func (s *GameService) GetGameByPin(ctx context.Context, pin string) (*models.GameDocument, error) {
	return s.store.FindByPin(ctx, pin)
}

// IsHostUser reports whether the game row belongs to a quiz owned by
// the given user. Guards the host HTTP surface.
func (s *GameService) IsHostUser(gameID string, userID uint) error {
	var row models.Game
	if err := s.db.Where("doc_id = ?", gameID).First(&row).Error; err != nil {
		return ErrGameNotFound
	}
	var quiz models.Quiz
	if err := s.db.Where("id = ? AND user_id = ?", row.QuizID, userID).First(&quiz).Error; err != nil {
		return errors.New("unauthorized to control this game")
	}
	return nil
}

func (s *GameService) finishRow(docID string, status models.GameStatus) {
	now := time.Now().UTC()
	if err := s.db.Model(&models.Game{}).Where("doc_id = ?", docID).
		Updates(map[string]interface{}{"status": string(status), "ended_at": now}).Error; err != nil {
		log.Printf("Failed to finish game row %s: %v", docID, err)
	}
}

func (s *GameService) allocatePin(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		pin := generatePin()
		if _, err := s.store.FindByPin(ctx, pin); errors.Is(err, ErrGameNotFound) {
			return pin, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not allocate a unique pin")
}

func generatePin() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:6]
}

func newID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// scorePoints follows the classic formula: base points for a correct
// answer, a speed bonus of up to half the base, and a small bonus per
// consecutive correct answer.
func scorePoints(timeSpentMS, durationSec int, correct bool, streak int) int {
	if !correct {
		return 0
	}
	basePoints := 100
	durationMS := durationSec * 1000
	timeBonus := 0
	if durationMS > 0 && timeSpentMS < durationMS && timeSpentMS >= 0 {
		timeBonus = 50 * (durationMS - timeSpentMS) / durationMS
	}
	streakBonus := 10 * (streak - 1)
	if streakBonus > 50 {
		streakBonus = 50
	}
	if streakBonus < 0 {
		streakBonus = 0
	}
	return basePoints + timeBonus + streakBonus
}
