package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streaks/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	streakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

const nameWidth = 24

func Title(s string) string {
	return titleStyle.Render(s)
}

func Muted(s string) string {
	return mutedStyle.Render(s)
}

// HabitLine renders one habit as "[x] Name  streak  id".
func HabitLine(h *models.Habit) string {
	box := "[ ]"
	if h.IsCompletedToday() {
		box = doneStyle.Render("[x]")
	}

	streak := ""
	if n := h.CurrentStreak(); n > 0 {
		streak = streakStyle.Render(fmt.Sprintf("%d day streak", n))
	}

	line := fmt.Sprintf("%s %s %s", box, pad(h.Name, nameWidth), streak)
	if h.Description != nil {
		line += " " + mutedStyle.Render(*h.Description)
	}
	return strings.TrimRight(line, " ") + "  " + mutedStyle.Render(shortID(h.ID()))
}

func TaskLine(t *models.Task, now time.Time) string {
	box := "[ ]"
	if t.IsComplete() {
		box = doneStyle.Render("[x]")
	}

	due := "due " + t.DueDate.Format("Mon Jan 2")
	switch {
	case t.IsOverdue(now):
		due = dangerStyle.Render("overdue since " + t.DueDate.Format("Jan 2"))
	case t.IsDueOn(now):
		due = streakStyle.Render("due today")
	}

	line := fmt.Sprintf("%s %s %s", box, pad(t.Title, nameWidth), due)
	if t.Note != nil {
		line += " " + mutedStyle.Render(*t.Note)
	}
	return line + "  " + mutedStyle.Render(shortID(t.ID()))
}

// HabitHistory renders the last n days of a habit as a row of x and . marks,
// oldest on the left.
func HabitHistory(h *models.Habit, today models.Day, n int) string {
	var b strings.Builder
	b.WriteString(pad(h.Name, nameWidth))
	for i := n - 1; i >= 0; i-- {
		day := today.AddDays(-i)
		if h.WasCompletedOn(day.Time()) {
			b.WriteString(doneStyle.Render(" x"))
		} else {
			b.WriteString(mutedStyle.Render(" ."))
		}
	}
	return b.String()
}

// HistoryHeader labels the columns of HabitHistory with day-of-month numbers.
func HistoryHeader(today models.Day, n int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", nameWidth))
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%2d", today.AddDays(-i).Time().Day()%100)
	}
	return mutedStyle.Render(b.String())
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width >= 5 {
			return string(r[:width-3]) + "..."
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
