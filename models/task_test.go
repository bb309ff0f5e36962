package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewTaskStartsPending(t *testing.T) {
	for _, tt := range []TaskType{TaskLobby, TaskQuestion, TaskQuestionResult, TaskLeaderboard, TaskPodium, TaskQuit} {
		task := NewTask(tt)
		if task.Type() != tt {
			t.Errorf("NewTask(%s).Type() = %s", tt, task.Type())
		}
		if task.Status() != TaskPending {
			t.Errorf("NewTask(%s) starts at %s, want pending", tt, task.Status())
		}
		if task.Status() == TaskPending && tt == TaskQuestion {
			if task.(*QuestionTask).Answers == nil {
				t.Error("fresh question task has nil answer map")
			}
		}
	}
}

func TestTaskBoxRoundTrip(t *testing.T) {
	question := NewTask(TaskQuestion).(*QuestionTask)
	question.SetStatus(TaskActive)
	question.Index = 3
	question.Answers["p-1"] = PlayerAnswer{OptionIndex: 2, TimeSpentMS: 1500, Correct: true, Points: 142}

	data, err := json.Marshal(TaskBox{Task: question})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"question"`) {
		t.Errorf("envelope missing type tag: %s", data)
	}

	var box TaskBox
	if err := json.Unmarshal(data, &box); err != nil {
		t.Fatal(err)
	}
	got, ok := box.Task.(*QuestionTask)
	if !ok {
		t.Fatalf("decoded into %T, want *QuestionTask", box.Task)
	}
	if got.Status() != TaskActive || got.Index != 3 {
		t.Errorf("decoded (%s, index %d), want (active, 3)", got.Status(), got.Index)
	}
	if got.Answers["p-1"] != question.Answers["p-1"] {
		t.Errorf("answer lost in round trip: %+v", got.Answers["p-1"])
	}
}

func TestTaskBoxNull(t *testing.T) {
	data, err := json.Marshal(TaskBox{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("empty box encodes as %s, want null", data)
	}
	var box TaskBox
	if err := json.Unmarshal([]byte("null"), &box); err != nil {
		t.Fatal(err)
	}
	if box.Task != nil {
		t.Errorf("null decoded into %T", box.Task)
	}
}

func TestTaskBoxUnknownType(t *testing.T) {
	var box TaskBox
	err := json.Unmarshal([]byte(`{"type":"intermission","task":{}}`), &box)
	if err == nil || !strings.Contains(err.Error(), "intermission") {
		t.Errorf("unknown type error = %v", err)
	}
}

func TestSetStatusAdvancesSince(t *testing.T) {
	task := NewTask(TaskLobby)
	first := task.(*LobbyTask).Since
	task.SetStatus(TaskActive)
	if task.(*LobbyTask).Since.Before(first) {
		t.Error("Since went backwards on status change")
	}
	if task.Status() != TaskActive {
		t.Errorf("status = %s, want active", task.Status())
	}
}
