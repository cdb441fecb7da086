package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
)

var (
	ErrEmptyName        = errors.New("habit name cannot be empty")
	ErrEmptyTitle       = errors.New("task title cannot be empty")
	ErrInvalidFrequency = fmt.Errorf("target frequency must be between %d and %d days per week",
		constants.MinTargetFrequency, constants.MaxTargetFrequency)
)

// HabitName rejects names that are empty after trimming whitespace.
func HabitName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

func TaskTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

func Frequency(n int) error {
	if n < constants.MinTargetFrequency || n > constants.MaxTargetFrequency {
		return fmt.Errorf("%w (got %d)", ErrInvalidFrequency, n)
	}
	return nil
}

// ConflictType identifies a problem found in stored collections
type ConflictType string

const (
	ConflictDuplicateID        ConflictType = "duplicate_id"
	ConflictDuplicateHabitName ConflictType = "duplicate_habit_name"
	ConflictEmptyName          ConflictType = "empty_name"
	ConflictInvalidFrequency   ConflictType = "invalid_frequency"
	ConflictFutureCompletion   ConflictType = "future_completion"
)

// Conflict describes one problem and the ids involved
type Conflict struct {
	Type        ConflictType
	Description string
	IDs         []string
}

type ValidationResult struct {
	Conflicts []Conflict
}

func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator checks loaded collections for data the models would never produce
// on their own, e.g. hand-edited files or merges from another device.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateHabits(habits []*models.Habit, today models.Day) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	result.Conflicts = append(result.Conflicts, duplicateIDs(habits)...)

	byName := make(map[string][]string)
	for _, h := range habits {
		if strings.TrimSpace(h.Name) == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictEmptyName,
				Description: fmt.Sprintf("Habit %s has an empty name", h.ID()),
				IDs:         []string{h.ID()},
			})
			continue
		}
		byName[h.Name] = append(byName[h.Name], h.ID())
	}
	for _, name := range sortedKeys(byName) {
		if ids := byName[name]; len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateHabitName,
				Description: fmt.Sprintf("Duplicate habit name: %q (IDs: %v)", name, ids),
				IDs:         ids,
			})
		}
	}

	for _, h := range habits {
		if err := Frequency(h.TargetFrequency); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidFrequency,
				Description: fmt.Sprintf("Habit %q has target frequency %d", h.Name, h.TargetFrequency),
				IDs:         []string{h.ID()},
			})
		}

		days := h.CompletionDays()
		if len(days) > 0 && days[0] > today {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictFutureCompletion,
				Description: fmt.Sprintf("Habit %q has completions after %s (latest %s)", h.Name, today, days[0]),
				IDs:         []string{h.ID()},
			})
		}
	}

	return result
}

func (v *Validator) ValidateTasks(tasks []*models.Task) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	result.Conflicts = append(result.Conflicts, duplicateIDs(tasks)...)
	for _, t := range tasks {
		if strings.TrimSpace(t.Title) == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictEmptyName,
				Description: fmt.Sprintf("Task %s has an empty title", t.ID()),
				IDs:         []string{t.ID()},
			})
		}
	}
	return result
}

type identified interface {
	ID() string
}

func duplicateIDs[T identified](items []T) []Conflict {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.ID()]++
	}

	var conflicts []Conflict
	for _, id := range sortedKeys(counts) {
		if n := counts[id]; n > 1 {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDuplicateID,
				Description: fmt.Sprintf("ID %s appears %d times", id, n),
				IDs:         []string{id},
			})
		}
	}
	return conflicts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
