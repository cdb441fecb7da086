package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is a one-off item with a due date. Its completion timestamp is tied to
// the completion flag: set when the task becomes complete, cleared when it
// becomes incomplete.
type Task struct {
	id            string
	Title         string
	Note          *string
	DueDate       time.Time
	createdDate   time.Time
	isComplete    bool
	completedDate *time.Time
}

// TaskOption customizes a task at construction time.
type TaskOption func(*Task)

// WithNote sets the optional note. Empty strings are treated as absent.
func WithNote(note string) TaskOption {
	return func(t *Task) {
		t.SetNote(note)
	}
}

// WithDueDate overrides the default due date (now).
func WithDueDate(due time.Time) TaskOption {
	return func(t *Task) {
		t.DueDate = due
	}
}

// NewTask creates an incomplete task due now. The caller validates the title.
func NewTask(title string, opts ...TaskOption) *Task {
	now := clock()
	t := &Task{
		id:          uuid.New().String(),
		Title:       title,
		DueDate:     now,
		createdDate: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) ID() string {
	return t.id
}

func (t *Task) CreatedDate() time.Time {
	return t.createdDate
}

func (t *Task) IsComplete() bool {
	return t.isComplete
}

// CompletedDate is non-nil iff the task is complete.
func (t *Task) CompletedDate() *time.Time {
	return t.completedDate
}

// SetNote replaces the note; an empty string clears it.
func (t *Task) SetNote(note string) *Task {
	if note == "" {
		t.Note = nil
		return t
	}
	t.Note = &note
	return t
}

// SetComplete updates the completion flag. The completion timestamp is set to
// now on every transition to complete and cleared on every transition to
// incomplete; setting the current value again changes nothing.
func (t *Task) SetComplete(complete bool, now time.Time) *Task {
	if complete == t.isComplete {
		return t
	}
	t.isComplete = complete
	if complete {
		completed := now
		t.completedDate = &completed
	} else {
		t.completedDate = nil
	}
	return t
}

// ToggleComplete flips the completion flag using now as the completion time.
func (t *Task) ToggleComplete(now time.Time) *Task {
	return t.SetComplete(!t.isComplete, now)
}

// IsDueOn reports whether the task's due date falls on the same day as day.
func (t *Task) IsDueOn(day time.Time) bool {
	return DayOf(t.DueDate) == DayOf(day)
}

// IsOverdue reports whether an incomplete task's due day is before now's day.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.isComplete && DayOf(t.DueDate) < DayOf(now)
}

type taskRecord struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Note          *string    `json:"note,omitempty"`
	DueDate       time.Time  `json:"dueDate"`
	CreatedDate   time.Time  `json:"createdDate"`
	IsComplete    bool       `json:"isComplete"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskRecord{
		ID:            t.id,
		Title:         t.Title,
		Note:          t.Note,
		DueDate:       t.DueDate,
		CreatedDate:   t.createdDate,
		IsComplete:    t.isComplete,
		CompletedDate: t.completedDate,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var rec taskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("task record is missing an id")
	}

	completed := rec.CompletedDate
	if !rec.IsComplete {
		completed = nil
	} else if completed == nil {
		created := rec.CreatedDate
		completed = &created
	}

	*t = Task{
		id:            rec.ID,
		Title:         rec.Title,
		Note:          rec.Note,
		DueDate:       rec.DueDate,
		createdDate:   rec.CreatedDate,
		isComplete:    rec.IsComplete,
		completedDate: completed,
	}
	return nil
}
