package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.state == StateConfirmDelete {
			switch {
			case key.Matches(msg, m.keys.Confirm):
				m.deleteSelected()
				m.state = m.previousState
			case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
				m.state = m.previousState
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			m.status = ""
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			m.status = ""
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, m.keys.Toggle):
			m.toggleSelected()
		case key.Matches(msg, m.keys.Delete):
			if m.selectionCount() > 0 {
				m.previousState = m.state
				m.state = StateConfirmDelete
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.state {
	case StateHabits:
		m.habitCursor = clamp(m.habitCursor+delta, len(m.habits))
	case StateTasks:
		m.taskCursor = clamp(m.taskCursor+delta, len(m.tasks))
	}
}

func (m Model) selectionCount() int {
	if m.state == StateHabits {
		return len(m.habits)
	}
	return len(m.tasks)
}
