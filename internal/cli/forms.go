package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/validation"
)

type habitForm struct {
	Name        string
	Description string
	Frequency   string
}

type taskForm struct {
	Title string
	Note  string
	Due   string
}

func newHabitForm(fm *habitForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(validation.HabitName),
			huh.NewInput().
				Title("Description").
				Description("Optional").
				Value(&fm.Description),
			huh.NewInput().
				Title(fmt.Sprintf("Days per week (%d-%d)", constants.MinTargetFrequency, constants.MaxTargetFrequency)).
				Value(&fm.Frequency).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					return validation.Frequency(i)
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

func newTaskForm(fm *taskForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&fm.Title).
				Validate(validation.TaskTitle),
			huh.NewInput().
				Title("Note").
				Description("Optional").
				Value(&fm.Note),
			huh.NewInput().
				Title("Due").
				Description("YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"").
				Value(&fm.Due).
				Validate(func(s string) error {
					_, err := ParseDue(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// confirm asks a yes/no question. assumeYes skips the prompt.
func confirm(title string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	ok := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
