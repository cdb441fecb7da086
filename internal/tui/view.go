package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateHabits:
		content = docStyle.Render(m.viewHabits())
	case StateTasks:
		content = docStyle.Render(m.viewTasks())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	parts := []string{m.viewTabs(), content}
	if m.status != "" {
		parts = append(parts, mutedStyle.Render(m.status))
	}
	if m.validationWarning != "" {
		parts = append(parts, dangerStyle.Render(m.validationWarning))
	}
	parts = append(parts, m.help.View(m))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	active := m.state
	if active == StateConfirmDelete {
		active = m.previousState
	}

	var tabs []string
	for i, title := range []string{"Habits", "Tasks"} {
		if active == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewHabits() string {
	if len(m.habits) == 0 {
		return mutedStyle.Render("No habits yet. Add one with `streaks habit add`.")
	}

	var b strings.Builder
	for i, h := range m.habits {
		b.WriteString(cursor(i == m.habitCursor))
		b.WriteString(checkbox(h.IsCompletedToday()))
		b.WriteString(" " + h.Name)
		if n := h.CurrentStreak(); n > 0 {
			b.WriteString("  " + streakStyle.Render(fmt.Sprintf("%d🔥", n)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTasks() string {
	if len(m.tasks) == 0 {
		return mutedStyle.Render("No tasks.")
	}

	now := time.Now()
	var b strings.Builder
	for i, t := range m.tasks {
		b.WriteString(cursor(i == m.taskCursor))
		b.WriteString(checkbox(t.IsComplete()))
		b.WriteString(" " + t.Title)
		switch {
		case t.IsOverdue(now):
			b.WriteString("  " + dangerStyle.Render("overdue"))
		case !t.IsComplete():
			b.WriteString("  " + mutedStyle.Render(t.DueDate.Format("Mon Jan 2")))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewConfirmDelete() string {
	what := "habit"
	if m.previousState == StateTasks {
		what = "task"
	}
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Are you sure you want to delete this %s?", what)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func cursor(selected bool) string {
	if selected {
		return cursorStyle.Render("> ")
	}
	return "  "
}

func checkbox(done bool) string {
	if done {
		return doneStyle.Render("[x]")
	}
	return "[ ]"
}
