// Package service pairs entity mutations with the collection writes that
// persist them, so every caller toggles and saves as one unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/validation"
)

var ErrAmbiguous = errors.New("reference matches more than one item")

type Service struct {
	store *storage.Store
	now   func() time.Time
}

func New(store *storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// HabitInput carries optional fields for add and edit. Nil means unchanged
// (edit) or default (add).
type HabitInput struct {
	Name            string
	Description     *string
	TargetFrequency *int
}

type TaskInput struct {
	Title   string
	Note    *string
	DueDate *time.Time
}

// CalendarDay is everything scheduled or done on one day.
type CalendarDay struct {
	Day    models.Day      `json:"day"`
	Habits []*models.Habit `json:"habits"`
	Tasks  []*models.Task  `json:"tasks"`
}

func (s *Service) Store() *storage.Store {
	return s.store
}

// Habits

func (s *Service) ListHabits(ctx context.Context) []*models.Habit {
	habits := s.store.Habits().LoadAll(ctx)
	models.SortHabitsForDisplay(habits, models.DayOf(s.now()))
	return habits
}

func (s *Service) AddHabit(ctx context.Context, in HabitInput) (*models.Habit, error) {
	if err := validation.HabitName(in.Name); err != nil {
		return nil, err
	}

	var opts []models.HabitOption
	if in.Description != nil {
		opts = append(opts, models.WithDescription(*in.Description))
	}
	if in.TargetFrequency != nil {
		if err := validation.Frequency(*in.TargetFrequency); err != nil {
			return nil, err
		}
		opts = append(opts, models.WithTargetFrequency(*in.TargetFrequency))
	}

	h := models.NewHabit(strings.TrimSpace(in.Name), opts...)
	if err := s.store.Habits().Upsert(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// FindHabit resolves ref as an id, then as a case-insensitive name.
func (s *Service) FindHabit(ctx context.Context, ref string) (*models.Habit, error) {
	habits := s.store.Habits().LoadAll(ctx)
	h, err := find(habits, ref, func(h *models.Habit) string { return h.Name })
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrHabitNotFound, ref)
	}
	return h, err
}

func (s *Service) EditHabit(ctx context.Context, ref string, in HabitInput) (*models.Habit, error) {
	if in.Name != "" {
		if err := validation.HabitName(in.Name); err != nil {
			return nil, err
		}
	}
	if in.TargetFrequency != nil {
		if err := validation.Frequency(*in.TargetFrequency); err != nil {
			return nil, err
		}
	}

	return s.updateHabit(ctx, ref, func(h *models.Habit) {
		if in.Name != "" {
			h.SetName(strings.TrimSpace(in.Name))
		}
		if in.Description != nil {
			h.SetDescription(*in.Description)
		}
		if in.TargetFrequency != nil {
			h.SetTargetFrequency(*in.TargetFrequency)
		}
	})
}

// ToggleHabit flips today's completion and persists the habit.
func (s *Service) ToggleHabit(ctx context.Context, ref string) (*models.Habit, error) {
	return s.updateHabit(ctx, ref, func(h *models.Habit) {
		h.ToggleCompletion(s.now())
	})
}

// MarkHabit sets the completion state for an arbitrary day.
func (s *Service) MarkHabit(ctx context.Context, ref string, day models.Day, done bool) (*models.Habit, error) {
	return s.updateHabit(ctx, ref, func(h *models.Habit) {
		if done {
			h.MarkCompleted(day.Time())
		} else {
			h.MarkNotCompleted(day.Time())
		}
	})
}

// updateHabit resolves ref to an id, then reloads, changes and saves the
// habit as one locked step so concurrent changes are not lost.
func (s *Service) updateHabit(ctx context.Context, ref string, change func(*models.Habit)) (*models.Habit, error) {
	found, err := s.FindHabit(ctx, ref)
	if err != nil {
		return nil, err
	}
	h, err := s.store.Habits().Update(ctx, found.ID(), func(h *models.Habit) (*models.Habit, error) {
		change(h)
		return h, nil
	})
	if errors.Is(err, storage.ErrItemNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrHabitNotFound, ref)
	}
	return h, err
}

func (s *Service) DeleteHabit(ctx context.Context, ref string) (*models.Habit, error) {
	h, err := s.FindHabit(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.store.Habits().RemoveByID(ctx, h.ID()); err != nil {
		return nil, err
	}
	return h, nil
}

// Tasks

func (s *Service) ListTasks(ctx context.Context) []*models.Task {
	tasks := s.store.Tasks().LoadAll(ctx)
	models.SortTasksForDisplay(tasks)
	return tasks
}

func (s *Service) AddTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	if err := validation.TaskTitle(in.Title); err != nil {
		return nil, err
	}

	var opts []models.TaskOption
	if in.Note != nil {
		opts = append(opts, models.WithNote(*in.Note))
	}
	if in.DueDate != nil {
		opts = append(opts, models.WithDueDate(*in.DueDate))
	}

	t := models.NewTask(strings.TrimSpace(in.Title), opts...)
	if err := s.store.Tasks().Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) FindTask(ctx context.Context, ref string) (*models.Task, error) {
	tasks := s.store.Tasks().LoadAll(ctx)
	t, err := find(tasks, ref, func(t *models.Task) string { return t.Title })
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, ref)
	}
	return t, err
}

func (s *Service) EditTask(ctx context.Context, ref string, in TaskInput) (*models.Task, error) {
	if in.Title != "" {
		if err := validation.TaskTitle(in.Title); err != nil {
			return nil, err
		}
	}

	return s.updateTask(ctx, ref, func(t *models.Task) {
		if in.Title != "" {
			t.Title = strings.TrimSpace(in.Title)
		}
		if in.Note != nil {
			t.SetNote(*in.Note)
		}
		if in.DueDate != nil {
			t.DueDate = *in.DueDate
		}
	})
}

// ToggleTask flips completion and persists the task.
func (s *Service) ToggleTask(ctx context.Context, ref string) (*models.Task, error) {
	return s.updateTask(ctx, ref, func(t *models.Task) {
		t.ToggleComplete(s.now())
	})
}

func (s *Service) updateTask(ctx context.Context, ref string, change func(*models.Task)) (*models.Task, error) {
	found, err := s.FindTask(ctx, ref)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Tasks().Update(ctx, found.ID(), func(t *models.Task) (*models.Task, error) {
		change(t)
		return t, nil
	})
	if errors.Is(err, storage.ErrItemNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, ref)
	}
	return t, err
}

func (s *Service) DeleteTask(ctx context.Context, ref string) (*models.Task, error) {
	t, err := s.FindTask(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.store.Tasks().RemoveByID(ctx, t.ID()); err != nil {
		return nil, err
	}
	return t, nil
}

// Calendar collects the habits completed and tasks due on day.
func (s *Service) Calendar(ctx context.Context, day models.Day) CalendarDay {
	at := day.Time()
	habits := models.HabitsCompletedOn(s.store.Habits().LoadAll(ctx), at)
	tasks := models.TasksDueOn(s.store.Tasks().LoadAll(ctx), at)
	if habits == nil {
		habits = []*models.Habit{}
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return CalendarDay{Day: day, Habits: habits, Tasks: tasks}
}

var errNotFound = errors.New("not found")

const minIDPrefix = 4

func find[T storage.Entity](items []T, ref string, name func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, errNotFound
	}

	for _, item := range items {
		if item.ID() == ref {
			return item, nil
		}
	}

	var matches []T
	for _, item := range items {
		if strings.EqualFold(name(item), ref) {
			matches = append(matches, item)
		}
	}
	// Lists print 8-character ids, so accept a unique prefix of at least 4.
	if len(matches) == 0 && len(ref) >= minIDPrefix {
		for _, item := range items {
			if strings.HasPrefix(item.ID(), ref) {
				matches = append(matches, item)
			}
		}
	}
	switch len(matches) {
	case 0:
		return zero, errNotFound
	case 1:
		return matches[0], nil
	}
	return zero, fmt.Errorf("%w: %q matches %d items, use the id", ErrAmbiguous, ref, len(matches))
}
