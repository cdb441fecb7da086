package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streaks/internal/constants"
)

// clock is the source of "now" for streak derivation. Tests replace it.
var clock = time.Now

// Habit represents a recurring practice whose completions are tracked per day.
//
// The completion log is the only source of truth: the current streak is derived
// from it on every read and is never stored as independent state.
type Habit struct {
	id              string
	Name            string
	Description     *string
	TargetFrequency int
	createdDate     time.Time
	completions     map[Day]struct{}
}

// HabitOption customizes a habit at construction time.
type HabitOption func(*Habit)

// WithDescription sets the optional description. Empty strings are treated as absent.
func WithDescription(description string) HabitOption {
	return func(h *Habit) {
		h.SetDescription(description)
	}
}

// WithTargetFrequency sets the intended weekly cadence (1-7).
func WithTargetFrequency(freq int) HabitOption {
	return func(h *Habit) {
		h.TargetFrequency = freq
	}
}

// NewHabit creates a habit with a fresh id, the current timestamp and an empty log.
// The caller is responsible for validating the name.
func NewHabit(name string, opts ...HabitOption) *Habit {
	h := &Habit{
		id:              uuid.New().String(),
		Name:            name,
		TargetFrequency: constants.DefaultTargetFrequency,
		createdDate:     clock(),
		completions:     make(map[Day]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Habit) ID() string {
	return h.id
}

func (h *Habit) CreatedDate() time.Time {
	return h.createdDate
}

// SetName replaces the display name.
func (h *Habit) SetName(name string) *Habit {
	h.Name = name
	return h
}

// SetDescription replaces the description; an empty string clears it.
func (h *Habit) SetDescription(description string) *Habit {
	if description == "" {
		h.Description = nil
		return h
	}
	h.Description = &description
	return h
}

// SetTargetFrequency replaces the weekly cadence. It is stored, not enforced.
func (h *Habit) SetTargetFrequency(freq int) *Habit {
	h.TargetFrequency = freq
	return h
}

// IsCompletedOn reports whether the day containing t is in the completion log.
func (h *Habit) IsCompletedOn(t time.Time) bool {
	return h.hasDay(DayOf(t))
}

// WasCompletedOn is an alias of IsCompletedOn used by calendar rendering.
func (h *Habit) WasCompletedOn(t time.Time) bool {
	return h.IsCompletedOn(t)
}

// IsCompletedToday reports whether today is in the completion log.
func (h *Habit) IsCompletedToday() bool {
	return h.IsCompletedOn(clock())
}

func (h *Habit) hasDay(d Day) bool {
	_, ok := h.completions[d]
	return ok
}

// MarkCompleted adds the day containing t to the log. Marking an already
// completed day is a no-op.
func (h *Habit) MarkCompleted(t time.Time) *Habit {
	h.ensureLog()
	h.completions[DayOf(t)] = struct{}{}
	return h
}

// MarkNotCompleted removes the day containing t from the log, if present.
func (h *Habit) MarkNotCompleted(t time.Time) *Habit {
	delete(h.completions, DayOf(t))
	return h
}

// ToggleCompletion flips the completion state of the day containing now.
// Exactly one of MarkCompleted or MarkNotCompleted takes effect.
func (h *Habit) ToggleCompletion(now time.Time) *Habit {
	if h.IsCompletedOn(now) {
		return h.MarkNotCompleted(now)
	}
	return h.MarkCompleted(now)
}

// ToggleCompletionForToday flips today's completion state.
func (h *Habit) ToggleCompletionForToday() *Habit {
	return h.ToggleCompletion(clock())
}

// CompletionDates returns every completed day as local midnight, newest first.
func (h *Habit) CompletionDates() []time.Time {
	days := h.CompletionDays()
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Time())
	}
	return dates
}

// CompletionDays returns the normalized log, newest first.
func (h *Habit) CompletionDays() []Day {
	days := make([]Day, 0, len(h.completions))
	for d := range h.completions {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i] > days[j]
	})
	return days
}

// CurrentStreak is the streak as of the current local day.
func (h *Habit) CurrentStreak() int {
	return h.StreakAsOf(DayOf(clock()))
}

// StreakAsOf evaluates the streak with today set to the given day.
func (h *Habit) StreakAsOf(today Day) int {
	return Streak(h.completions, today)
}

func (h *Habit) ensureLog() {
	if h.completions == nil {
		h.completions = make(map[Day]struct{})
	}
}

// Streak counts consecutive completed days ending at today, or at yesterday
// when today has not been completed yet. A log whose most recent day (not
// after today) is more than one day old yields 0. Days after today are ignored.
func Streak(log map[Day]struct{}, today Day) int {
	if len(log) == 0 {
		return 0
	}

	var mostRecent Day
	for d := range log {
		if d <= today && d > mostRecent {
			mostRecent = d
		}
	}
	if mostRecent == "" || today.DaysSince(mostRecent) > 1 {
		return 0
	}

	start := today
	if _, ok := log[today]; !ok {
		start = today.AddDays(-1)
	}

	streak := 0
	for d := start; ; d = d.AddDays(-1) {
		if _, ok := log[d]; !ok {
			break
		}
		streak++
	}
	return streak
}

// habitRecord is the persisted shape of a habit. currentStreak is accepted on
// input for compatibility with older files but never trusted or written.
type habitRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	TargetFrequency *int      `json:"targetFrequency,omitempty"`
	CreatedDate     time.Time `json:"createdDate"`
	CompletionDates []Day     `json:"completionDates"`
	CurrentStreak   *int      `json:"currentStreak,omitempty"`
}

func (h Habit) MarshalJSON() ([]byte, error) {
	freq := h.TargetFrequency
	return json.Marshal(habitRecord{
		ID:              h.id,
		Name:            h.Name,
		Description:     h.Description,
		TargetFrequency: &freq,
		CreatedDate:     h.createdDate,
		CompletionDates: h.CompletionDays(),
	})
}

func (h *Habit) UnmarshalJSON(data []byte) error {
	var rec habitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("habit record is missing an id")
	}

	freq := constants.DefaultTargetFrequency
	if rec.TargetFrequency != nil {
		freq = *rec.TargetFrequency
	}

	completions := make(map[Day]struct{}, len(rec.CompletionDates))
	for _, raw := range rec.CompletionDates {
		d, err := ParseDay(string(raw))
		if err != nil {
			return fmt.Errorf("habit %s: %w", rec.ID, err)
		}
		completions[d] = struct{}{}
	}

	*h = Habit{
		id:              rec.ID,
		Name:            rec.Name,
		Description:     rec.Description,
		TargetFrequency: freq,
		createdDate:     rec.CreatedDate,
		completions:     completions,
	}
	return nil
}
