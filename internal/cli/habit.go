package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
)

type HabitAddCmd struct {
	Name        string `arg:"" optional:"" help:"Name of the habit."`
	Description string `help:"Optional description." short:"d"`
	Frequency   int    `help:"Target days per week (1-7)." default:"7" short:"f"`
	Interactive bool   `help:"Fill in the habit with a form." short:"i"`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if c.Interactive || c.Name == "" {
		fm := &habitForm{Name: c.Name, Description: c.Description, Frequency: strconv.Itoa(c.Frequency)}
		if err := newHabitForm(fm).Run(); err != nil {
			return err
		}
		c.Name = fm.Name
		c.Description = fm.Description
		c.Frequency, _ = strconv.Atoi(strings.TrimSpace(fm.Frequency))
	}

	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	in := service.HabitInput{Name: c.Name, TargetFrequency: &c.Frequency}
	if c.Description != "" {
		in.Description = &c.Description
	}
	h, err := ctx.Service.AddHabit(ctx.Ctx, in)
	if err != nil {
		return err
	}

	ctx.Printf("Added habit: %s (%s)\n", h.Name, shortID(h.ID()))
	return nil
}

type HabitListCmd struct {
	JSON bool `help:"Print habits as JSON."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	habits := ctx.Service.ListHabits(ctx.Ctx)
	if c.JSON {
		return writeJSON(ctx, habits)
	}

	if len(habits) == 0 {
		ctx.Println("No habits yet. Add one with 'streaks habit add'.")
		return nil
	}

	ctx.Println(Title(fmt.Sprintf("Habits for %s", models.Today())))
	for _, h := range habits {
		ctx.Println(HabitLine(h))
	}
	return nil
}

type HabitEditCmd struct {
	Ref              string `arg:"" help:"Habit ID, ID prefix or name."`
	Name             string `help:"New name."`
	Description      string `help:"New description." short:"d"`
	ClearDescription bool   `help:"Remove the description."`
	Frequency        int    `help:"New target days per week (1-7)." short:"f"`
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	in := service.HabitInput{Name: c.Name}
	switch {
	case c.ClearDescription:
		empty := ""
		in.Description = &empty
	case c.Description != "":
		in.Description = &c.Description
	}
	if c.Frequency != 0 {
		in.TargetFrequency = &c.Frequency
	}

	h, err := ctx.Service.EditHabit(ctx.Ctx, c.Ref, in)
	if err != nil {
		return err
	}
	ctx.Printf("Updated habit: %s\n", h.Name)
	return nil
}

type HabitToggleCmd struct {
	Ref string `arg:"" help:"Habit ID, ID prefix or name."`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	h, err := ctx.Service.ToggleHabit(ctx.Ctx, c.Ref)
	if err != nil {
		return err
	}
	if h.IsCompletedToday() {
		ctx.Printf("✓ %s done for today (%d day streak)\n", h.Name, h.CurrentStreak())
	} else {
		ctx.Printf("%s marked not done for today\n", h.Name)
	}
	return nil
}

type HabitMarkCmd struct {
	Ref string `arg:"" help:"Habit ID, ID prefix or name."`
	Day string `help:"Day to mark (YYYY-MM-DD, today or yesterday)." default:"today"`
}

func (c *HabitMarkCmd) Run(ctx *Context) error {
	return markHabit(ctx, c.Ref, c.Day, true)
}

type HabitUnmarkCmd struct {
	Ref string `arg:"" help:"Habit ID, ID prefix or name."`
	Day string `help:"Day to clear (YYYY-MM-DD, today or yesterday)." default:"today"`
}

func (c *HabitUnmarkCmd) Run(ctx *Context) error {
	return markHabit(ctx, c.Ref, c.Day, false)
}

func markHabit(ctx *Context, ref, dayStr string, done bool) error {
	day, err := ParseDay(dayStr)
	if err != nil {
		return err
	}
	if day.DaysSince(models.Today()) > 0 {
		return fmt.Errorf("cannot mark %s: day is in the future", day)
	}
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	h, err := ctx.Service.MarkHabit(ctx.Ctx, ref, day, done)
	if err != nil {
		return err
	}
	verb := "Cleared"
	if done {
		verb = "Marked"
	}
	ctx.Printf("%s %s on %s (%d day streak)\n", verb, h.Name, day, h.CurrentStreak())
	return nil
}

type HabitDeleteCmd struct {
	Ref string `arg:"" help:"Habit ID, ID prefix or name."`
	Yes bool   `help:"Do not ask for confirmation." short:"y"`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	h, err := ctx.Service.FindHabit(ctx.Ctx, c.Ref)
	if err != nil {
		return err
	}
	ok, err := confirm(fmt.Sprintf("Delete habit %q and its %d completions?", h.Name, len(h.CompletionDays())), c.Yes)
	if err != nil {
		return err
	}
	if !ok {
		ctx.Println("Delete cancelled.")
		return nil
	}

	ctx.PerformAutomaticBackup()
	if _, err := ctx.Service.DeleteHabit(ctx.Ctx, h.ID()); err != nil {
		return err
	}
	ctx.Printf("Deleted habit: %s\n", h.Name)
	return nil
}

type HabitCalendarCmd struct {
	Days int `help:"Number of days to show." default:"14"`
}

func (c *HabitCalendarCmd) Run(ctx *Context) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be positive")
	}
	if err := ctx.Load(); err != nil {
		return err
	}

	habits := ctx.Service.ListHabits(ctx.Ctx)
	if len(habits) == 0 {
		ctx.Println("No habits yet.")
		return nil
	}

	today := models.Today()
	ctx.Println(Title(fmt.Sprintf("Last %d days", c.Days)))
	ctx.Println(HistoryHeader(today, c.Days))
	for _, h := range habits {
		ctx.Println(HabitHistory(h, today, c.Days))
	}

	days := models.CompletionCalendar(habits)
	if len(days) > 0 {
		ctx.Println(Muted(fmt.Sprintf("%d active days since %s", len(days), days[0])))
	}
	return nil
}

func writeJSON(ctx *Context, v interface{}) error {
	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
