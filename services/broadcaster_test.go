package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quizlive/models"
)

func newTestBroadcaster(t *testing.T, doc *models.GameDocument, heartbeat time.Duration) (*Broadcaster, *GameStore) {
	t.Helper()
	store, _ := newTestStore()
	if doc != nil {
		if err := store.Save(context.Background(), doc); err != nil {
			t.Fatal(err)
		}
	}
	b := NewBroadcaster(store, NewLocalChannel(), heartbeat)
	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Stop)
	return b, store
}

func recvEnvelope(t *testing.T, ch <-chan []byte) Envelope {
	t.Helper()
	select {
	case payload, ok := <-ch:
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("malformed stream payload: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
	}
	return Envelope{}
}

func TestStreamCatchUpEvent(t *testing.T) {
	doc := newTestDoc(2, 30)
	b, _ := newTestBroadcaster(t, doc, time.Hour)

	events, cancel, err := b.GetEventStream(context.Background(), doc.ID, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	env := recvEnvelope(t, events)
	if env.Event.Type != EventState {
		t.Fatalf("first event type %q, want state", env.Event.Type)
	}
	game := env.Event.Game
	if game == nil {
		t.Fatal("catch-up event carries no game view")
	}
	if game.ID != doc.ID || game.PIN != doc.PIN {
		t.Errorf("catch-up view is for game %s/%s, want %s/%s", game.ID, game.PIN, doc.ID, doc.PIN)
	}
	if game.You == nil || game.You.ID != "p-1" {
		t.Error("player catch-up view missing own participant")
	}
}

func TestStreamRejectsUnknownGameAndParticipant(t *testing.T) {
	doc := newTestDoc(1, 30)
	b, _ := newTestBroadcaster(t, doc, time.Hour)

	if _, _, err := b.GetEventStream(context.Background(), "no-such-game", "p-1"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("unknown game: got %v, want ErrGameNotFound", err)
	}
	if _, _, err := b.GetEventStream(context.Background(), doc.ID, "stranger"); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("unknown participant: got %v, want ErrParticipantNotFound", err)
	}
}

// During an active question the host sees every answer and the correct
// option; each player sees only that their own answer landed.
func TestPublishRoleFiltersActiveQuestion(t *testing.T) {
	doc := newTestDoc(2, 30)
	question := models.NewTask(models.TaskQuestion).(*models.QuestionTask)
	question.SetStatus(models.TaskActive)
	question.Answers = map[string]models.PlayerAnswer{
		"p-1": {OptionIndex: 0, TimeSpentMS: 1200, Correct: true, Points: 148},
		"p-2": {OptionIndex: 2, TimeSpentMS: 900, Correct: false},
	}
	doc.CurrentTask = models.TaskBox{Task: question}

	b, _ := newTestBroadcaster(t, doc, time.Hour)

	hostEvents, hostCancel, err := b.GetEventStream(context.Background(), doc.ID, doc.Host.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer hostCancel()
	playerEvents, playerCancel, err := b.GetEventStream(context.Background(), doc.ID, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	defer playerCancel()
	recvEnvelope(t, hostEvents)   // catch-up
	recvEnvelope(t, playerEvents) // catch-up

	b.Publish(context.Background(), doc)

	hostEnv := recvEnvelope(t, hostEvents)
	if hostEnv.Recipient != doc.Host.ID {
		t.Fatalf("host stream delivered envelope for %q", hostEnv.Recipient)
	}
	hostTask := hostEnv.Event.Game.Task
	if len(hostTask.Answers) != 2 {
		t.Errorf("host sees %d answers, want 2", len(hostTask.Answers))
	}
	if hostTask.CorrectOption == nil || *hostTask.CorrectOption != 0 {
		t.Error("host view missing the correct option")
	}
	if !hostTask.Answers["p-1"].Correct || hostTask.Answers["p-1"].Points != 148 {
		t.Error("host view lost answer grading")
	}

	playerEnv := recvEnvelope(t, playerEvents)
	playerTask := playerEnv.Event.Game.Task
	if playerTask.CorrectOption != nil {
		t.Error("player view leaks the correct option during the question")
	}
	if _, ok := playerTask.Answers["p-2"]; ok {
		t.Error("player view leaks another player's answer")
	}
	own, ok := playerTask.Answers["p-1"]
	if !ok {
		t.Fatal("player view missing own answer acknowledgement")
	}
	if own.Correct || own.Points != 0 {
		t.Error("player view leaks own grading before the result")
	}
	if playerTask.AnswerCount != 2 {
		t.Errorf("player answer count %d, want 2", playerTask.AnswerCount)
	}
}

// At the result, correctness is revealed to everyone, but a player still
// sees only their own detailed result line.
func TestPublishRoleFiltersQuestionResult(t *testing.T) {
	doc := newTestDoc(2, 30)
	result := models.NewTask(models.TaskQuestionResult).(*models.QuestionResultTask)
	result.SetStatus(models.TaskActive)
	result.CorrectOption = 1
	result.Results = []models.PlayerResult{
		{ParticipantID: "p-1", Name: "Player 1", OptionIndex: 1, Correct: true, Points: 130},
		{ParticipantID: "p-2", Name: "Player 2", OptionIndex: 0, Correct: false},
	}
	doc.CurrentTask = models.TaskBox{Task: result}

	b, _ := newTestBroadcaster(t, doc, time.Hour)
	events, cancel, err := b.GetEventStream(context.Background(), doc.ID, "p-2")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	env := recvEnvelope(t, events) // catch-up carries the same filtering
	task := env.Event.Game.Task
	if task.CorrectOption == nil || *task.CorrectOption != 1 {
		t.Error("result view hides the correct option")
	}
	if len(task.Results) != 1 || task.Results[0].ParticipantID != "p-2" {
		t.Errorf("player result view shows %v, want only own line", task.Results)
	}
}

func TestHeartbeatReachesEveryStream(t *testing.T) {
	doc := newTestDoc(1, 30)
	b, _ := newTestBroadcaster(t, doc, 20*time.Millisecond)

	events, cancel, err := b.GetEventStream(context.Background(), doc.ID, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()
	recvEnvelope(t, events) // catch-up

	env := recvEnvelope(t, events)
	if env.Event.Type != EventHeartbeat {
		t.Fatalf("got %q event, want heartbeat", env.Event.Type)
	}
	if env.GameID != "" || env.Recipient != "" {
		t.Error("heartbeat should be unaddressed")
	}
}

func TestStreamCancelDetaches(t *testing.T) {
	doc := newTestDoc(1, 30)
	b, _ := newTestBroadcaster(t, doc, time.Hour)

	events, cancel, err := b.GetEventStream(context.Background(), doc.ID, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Subscribers(doc.ID); got != 1 {
		t.Fatalf("Subscribers = %d, want 1", got)
	}

	cancel()
	cancel() // idempotent
	if got := b.Subscribers(doc.ID); got != 0 {
		t.Errorf("Subscribers after cancel = %d, want 0", got)
	}
	recvEnvelope(t, events) // drain catch-up; channel then closes
	if _, ok := <-events; ok {
		t.Error("stream still open after cancel")
	}
}
