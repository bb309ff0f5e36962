package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizlive/models"
)

// memoryKV is the in-process KV used by the store tests. TTLs are
// ignored; documents live for the test's duration.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", ErrGameNotFound
	}
	return val, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// capturePublisher records every published document for assertions.
type capturePublisher struct {
	mu   sync.Mutex
	docs []*models.GameDocument
}

func (p *capturePublisher) Publish(ctx context.Context, doc *models.GameDocument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
}

func (p *capturePublisher) published() []*models.GameDocument {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.GameDocument(nil), p.docs...)
}

func newTestStore() (*GameStore, *memoryKV) {
	kv := newMemoryKV()
	return NewGameStore(kv, NewLocalLocker(), time.Hour), kv
}

// newTestDoc builds a two-question game with the given players, lobby
// pending, questions configured with the given active duration.
func newTestDoc(playerCount, questionDurationSec int) *models.GameDocument {
	doc := &models.GameDocument{
		ID:          "g-test",
		Mode:        models.ModeClassic,
		Status:      models.GameActive,
		PIN:         "abc123",
		Host:        models.Participant{ID: "host-1", Name: "host"},
		Quiz:        testQuiz(questionDurationSec),
		CurrentTask: models.TaskBox{Task: models.NewTask(models.TaskLobby)},
		Created:     time.Now().UTC(),
		Expires:     time.Now().UTC().Add(time.Hour),
	}
	for i := 0; i < playerCount; i++ {
		doc.Players = append(doc.Players, models.Participant{
			ID:   fmt.Sprintf("p-%d", i+1),
			Name: fmt.Sprintf("player%d", i+1),
		})
	}
	return doc
}

func testQuiz(questionDurationSec int) models.QuizSnapshot {
	return models.QuizSnapshot{
		QuizID: 1,
		Title:  "capitals",
		Questions: []models.QuestionSnapshot{
			{
				QuestionID: 10,
				Text:       "Capital of France?",
				Duration:   questionDurationSec,
				Options: []models.OptionSnapshot{
					{OptionID: 100, Text: "Paris", Correct: true},
					{OptionID: 101, Text: "Lyon"},
				},
			},
			{
				QuestionID: 11,
				Text:       "Capital of Peru?",
				Duration:   questionDurationSec,
				Options: []models.OptionSnapshot{
					{OptionID: 102, Text: "Cusco"},
					{OptionID: 103, Text: "Lima", Correct: true},
				},
			},
		},
	}
}

func testDelays(lobbyCountdown, lobbyDuration time.Duration) SchedulerDelays {
	return SchedulerDelays{
		LobbyCountdown:      lobbyCountdown,
		LobbyDuration:       lobbyDuration,
		QuestionIntro:       0,
		ResultDuration:      0,
		LeaderboardDuration: 0,
	}
}
