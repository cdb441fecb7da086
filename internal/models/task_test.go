package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewTaskDefaults(t *testing.T) {
	now := localDate(2024, time.March, 10, 9, 0)
	freezeClock(t, now)

	task := NewTask("Pay rent")
	if task.ID() == "" {
		t.Error("expected a generated id")
	}
	if task.Note != nil {
		t.Error("expected no note")
	}
	if !task.DueDate.Equal(now) || !task.CreatedDate().Equal(now) {
		t.Errorf("due/created = %v/%v, want %v", task.DueDate, task.CreatedDate(), now)
	}
	if task.IsComplete() || task.CompletedDate() != nil {
		t.Error("new task should be incomplete with no completion date")
	}
}

func TestTaskCompletionDependency(t *testing.T) {
	task := NewTask("Call mom", WithNote("after 6"))
	first := localDate(2024, time.March, 10, 18, 0)
	later := localDate(2024, time.March, 10, 19, 0)

	task.SetComplete(true, first)
	if !task.IsComplete() || task.CompletedDate() == nil || !task.CompletedDate().Equal(first) {
		t.Fatalf("completed date = %v, want %v", task.CompletedDate(), first)
	}

	task.SetComplete(true, later)
	if !task.CompletedDate().Equal(first) {
		t.Error("re-completing a complete task should keep the original completion time")
	}

	task.SetComplete(false, later)
	if task.IsComplete() || task.CompletedDate() != nil {
		t.Error("incomplete task must have no completion date")
	}

	task.ToggleComplete(later)
	if !task.IsComplete() || !task.CompletedDate().Equal(later) {
		t.Errorf("toggle should complete with the new time, got %v", task.CompletedDate())
	}
}

func TestTaskDueHelpers(t *testing.T) {
	due := localDate(2024, time.March, 10, 17, 0)
	task := NewTask("Submit report", WithDueDate(due))

	if !task.IsDueOn(localDate(2024, time.March, 10, 0, 1)) {
		t.Error("expected task to be due on the same calendar day")
	}
	if task.IsDueOn(localDate(2024, time.March, 11, 0, 1)) {
		t.Error("expected task not to be due the next day")
	}
	if task.IsOverdue(localDate(2024, time.March, 10, 23, 0)) {
		t.Error("a task is not overdue on its due day")
	}
	if !task.IsOverdue(localDate(2024, time.March, 11, 8, 0)) {
		t.Error("expected task to be overdue the next day")
	}
	task.SetComplete(true, localDate(2024, time.March, 11, 8, 0))
	if task.IsOverdue(localDate(2024, time.March, 12, 8, 0)) {
		t.Error("completed tasks are never overdue")
	}
}

func TestTaskJSON(t *testing.T) {
	task := NewTask("Water plants", WithNote("balcony"))
	task.SetComplete(true, localDate(2024, time.March, 10, 7, 0))

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID() != task.ID() || !decoded.IsComplete() || decoded.CompletedDate() == nil {
		t.Errorf("decoded task mismatch: %+v", decoded)
	}
	again, _ := json.Marshal(&decoded)
	if string(again) != string(data) {
		t.Errorf("re-serialization is not stable:\n%s\n%s", data, again)
	}
}

func TestTaskUnmarshalRepairsCompletionDependency(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantComplete  bool
		wantCompleted bool
	}{
		{
			name:          "incomplete with stray date",
			raw:           `{"id":"t1","title":"x","dueDate":"2024-03-10T00:00:00Z","createdDate":"2024-03-01T00:00:00Z","isComplete":false,"completedDate":"2024-03-05T00:00:00Z"}`,
			wantComplete:  false,
			wantCompleted: false,
		},
		{
			name:          "complete without date",
			raw:           `{"id":"t2","title":"x","dueDate":"2024-03-10T00:00:00Z","createdDate":"2024-03-01T00:00:00Z","isComplete":true}`,
			wantComplete:  true,
			wantCompleted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var task Task
			if err := json.Unmarshal([]byte(tt.raw), &task); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if task.IsComplete() != tt.wantComplete {
				t.Errorf("IsComplete = %v, want %v", task.IsComplete(), tt.wantComplete)
			}
			if (task.CompletedDate() != nil) != tt.wantCompleted {
				t.Errorf("CompletedDate = %v, want present=%v", task.CompletedDate(), tt.wantCompleted)
			}
		})
	}
}
