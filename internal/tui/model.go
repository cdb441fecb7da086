// Package tui is a small interactive view of today's habits and tasks.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streaks/internal/backup"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
	"github.com/julianstephens/streaks/internal/validation"
)

type SessionState int

const (
	StateHabits SessionState = iota
	StateTasks
	StateConfirmDelete
)

const tabCount = 2

type Model struct {
	ctx               context.Context
	svc               *service.Service
	backups           *backup.Manager
	state             SessionState
	previousState     SessionState
	keys              KeyMap
	help              help.Model
	habits            []*models.Habit
	tasks             []*models.Task
	habitCursor       int
	taskCursor        int
	status            string
	validationWarning string
	quitting          bool
	width             int
	height            int
}

type Option func(*Model)

// WithBackups archives the store before every delete.
func WithBackups(b *backup.Manager) Option {
	return func(m *Model) {
		m.backups = b
	}
}

func NewModel(ctx context.Context, svc *service.Service, opts ...Option) Model {
	m := Model{
		ctx:   ctx,
		svc:   svc,
		state: StateHabits,
		keys:  DefaultKeyMap(),
		help:  help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.reload()
	return m
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, svc *service.Service, opts ...Option) error {
	_, err := tea.NewProgram(NewModel(ctx, svc, opts...), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) ShortHelp() []key.Binding {
	return m.keys.ShortHelp()
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return nil
}

// reload refreshes both lists from the store and clamps the cursors.
func (m *Model) reload() {
	m.habits = m.svc.ListHabits(m.ctx)
	m.tasks = m.svc.ListTasks(m.ctx)
	m.habitCursor = clamp(m.habitCursor, len(m.habits))
	m.taskCursor = clamp(m.taskCursor, len(m.tasks))
	m.updateValidationStatus()
}

func (m *Model) updateValidationStatus() {
	validator := validation.New()
	habitResult := validator.ValidateHabits(m.habits, models.Today())
	taskResult := validator.ValidateTasks(m.tasks)

	if n := len(habitResult.Conflicts) + len(taskResult.Conflicts); n > 0 {
		m.validationWarning = fmt.Sprintf("⚠ %d validation warning(s), run `streaks doctor`", n)
	} else {
		m.validationWarning = ""
	}
}

func (m *Model) toggleSelected() {
	var err error
	switch m.state {
	case StateHabits:
		if len(m.habits) == 0 {
			return
		}
		var h *models.Habit
		h, err = m.svc.ToggleHabit(m.ctx, m.habits[m.habitCursor].ID())
		if err == nil {
			m.status = fmt.Sprintf("%s: %d day streak", h.Name, h.CurrentStreak())
		}
	case StateTasks:
		if len(m.tasks) == 0 {
			return
		}
		_, err = m.svc.ToggleTask(m.ctx, m.tasks[m.taskCursor].ID())
	}
	if err != nil {
		m.status = "Error: " + err.Error()
	}
	m.reload()
}

func (m *Model) deleteSelected() {
	if m.backups != nil {
		if _, err := m.backups.CreateBackup(m.ctx); err != nil {
			logger.Warn("Automatic backup failed", "error", err)
		}
	}

	var err error
	switch m.previousState {
	case StateHabits:
		if len(m.habits) > 0 {
			_, err = m.svc.DeleteHabit(m.ctx, m.habits[m.habitCursor].ID())
		}
	case StateTasks:
		if len(m.tasks) > 0 {
			_, err = m.svc.DeleteTask(m.ctx, m.tasks[m.taskCursor].ID())
		}
	}
	if err != nil {
		m.status = "Error: " + err.Error()
	} else {
		m.status = "Deleted."
	}
	m.reload()
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
