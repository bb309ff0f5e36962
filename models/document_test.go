package models

import (
	"testing"
)

func testDoc() *GameDocument {
	return &GameDocument{
		ID:     "g-1",
		Status: GameActive,
		Host:   Participant{ID: "host-1", Name: "Host"},
		Players: []Participant{
			{ID: "p-1", Name: "Ada", Score: 120},
			{ID: "p-2", Name: "Linus", Score: 250},
			{ID: "p-3", Name: "Grace", Score: 120},
		},
		CurrentTask: TaskBox{Task: NewTask(TaskLobby)},
	}
}

func TestIsParticipant(t *testing.T) {
	doc := testDoc()
	for _, id := range []string{"host-1", "p-1", "p-3"} {
		if !doc.IsParticipant(id) {
			t.Errorf("IsParticipant(%q) = false", id)
		}
	}
	if doc.IsParticipant("stranger") {
		t.Error("IsParticipant accepted an unknown id")
	}
}

func TestPlayerReturnsMutableEntry(t *testing.T) {
	doc := testDoc()
	p := doc.Player("p-1")
	if p == nil {
		t.Fatal("Player returned nil for existing player")
	}
	p.Score += 30
	if doc.Players[0].Score != 150 {
		t.Error("Player returned a copy instead of the stored entry")
	}
	if doc.Player("nope") != nil {
		t.Error("Player returned non-nil for unknown id")
	}
}

func TestReplaceTaskArchivesCurrent(t *testing.T) {
	doc := testDoc()
	lobby := doc.CurrentTask.Task
	lobby.SetStatus(TaskActive)
	lobby.SetStatus(TaskCompleted)

	doc.ReplaceTask(NewTask(TaskQuestion))
	if len(doc.PreviousTasks) != 1 || doc.PreviousTasks[0].Task.Type() != TaskLobby {
		t.Fatalf("history = %+v, want archived lobby", doc.PreviousTasks)
	}
	if doc.CurrentTask.Task.Type() != TaskQuestion {
		t.Errorf("current task is %s, want question", doc.CurrentTask.Task.Type())
	}

	// An empty current slot archives nothing.
	empty := &GameDocument{}
	empty.ReplaceTask(NewTask(TaskLobby))
	if len(empty.PreviousTasks) != 0 {
		t.Error("nil current task was archived")
	}
}

func TestRankingOrdersAndBreaksTiesStably(t *testing.T) {
	doc := testDoc()
	ranking := doc.Ranking()

	wantIDs := []string{"p-2", "p-1", "p-3"} // tie between p-1 and p-3 keeps join order
	if len(ranking) != len(wantIDs) {
		t.Fatalf("got %d entries, want %d", len(ranking), len(wantIDs))
	}
	for i, want := range wantIDs {
		if ranking[i].ParticipantID != want {
			t.Errorf("ranking[%d] = %s, want %s", i, ranking[i].ParticipantID, want)
		}
		if ranking[i].Rank != i+1 {
			t.Errorf("ranking[%d].Rank = %d, want %d", i, ranking[i].Rank, i+1)
		}
	}
	// Ranking is a projection; player order in the document is untouched.
	if doc.Players[0].ID != "p-1" {
		t.Error("Ranking reordered the document's player slice")
	}
}

func TestCorrectIndex(t *testing.T) {
	q := QuestionSnapshot{Options: []OptionSnapshot{
		{Text: "a"}, {Text: "b", Correct: true}, {Text: "c"},
	}}
	if got := q.CorrectIndex(); got != 1 {
		t.Errorf("CorrectIndex = %d, want 1", got)
	}
	if got := (QuestionSnapshot{}).CorrectIndex(); got != -1 {
		t.Errorf("CorrectIndex on no options = %d, want -1", got)
	}
}
