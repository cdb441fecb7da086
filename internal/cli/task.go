package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
)

type TaskAddCmd struct {
	Title       string `arg:"" optional:"" help:"Title of the task."`
	Note        string `help:"Optional note." short:"n"`
	Due         string `help:"Due date (YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"). Defaults to now."`
	Interactive bool   `help:"Fill in the task with a form." short:"i"`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	if c.Interactive || c.Title == "" {
		fm := &taskForm{Title: c.Title, Note: c.Note, Due: c.Due}
		if fm.Due == "" {
			fm.Due = string(models.Today())
		}
		if err := newTaskForm(fm).Run(); err != nil {
			return err
		}
		c.Title, c.Note, c.Due = fm.Title, fm.Note, fm.Due
	}

	in := service.TaskInput{Title: c.Title}
	if c.Note != "" {
		in.Note = &c.Note
	}
	if c.Due != "" {
		due, err := ParseDue(c.Due)
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	if err := ctx.LoadForWrite(); err != nil {
		return err
	}
	t, err := ctx.Service.AddTask(ctx.Ctx, in)
	if err != nil {
		return err
	}

	ctx.Printf("Added task: %s, due %s (%s)\n", t.Title, models.DayOf(t.DueDate), shortID(t.ID()))
	return nil
}

type TaskListCmd struct {
	Pending bool `help:"Only show incomplete tasks."`
	JSON    bool `help:"Print tasks as JSON."`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	tasks := ctx.Service.ListTasks(ctx.Ctx)
	if c.Pending {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.IsComplete() {
				open = append(open, t)
			}
		}
		tasks = open
	}
	if c.JSON {
		return writeJSON(ctx, tasks)
	}

	if len(tasks) == 0 {
		ctx.Println("No tasks found.")
		return nil
	}

	now := time.Now()
	ctx.Println(Title("Tasks"))
	for _, t := range tasks {
		ctx.Println(TaskLine(t, now))
	}
	return nil
}

type TaskEditCmd struct {
	Ref       string `arg:"" help:"Task ID, ID prefix or title."`
	Title     string `help:"New title."`
	Note      string `help:"New note." short:"n"`
	ClearNote bool   `help:"Remove the note."`
	Due       string `help:"New due date."`
}

func (c *TaskEditCmd) Run(ctx *Context) error {
	in := service.TaskInput{Title: c.Title}
	switch {
	case c.ClearNote:
		empty := ""
		in.Note = &empty
	case c.Note != "":
		in.Note = &c.Note
	}
	if c.Due != "" {
		due, err := ParseDue(c.Due)
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	if err := ctx.LoadForWrite(); err != nil {
		return err
	}
	t, err := ctx.Service.EditTask(ctx.Ctx, c.Ref, in)
	if err != nil {
		return err
	}
	ctx.Printf("Updated task: %s\n", t.Title)
	return nil
}

type TaskToggleCmd struct {
	Ref string `arg:"" help:"Task ID, ID prefix or title."`
}

func (c *TaskToggleCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	t, err := ctx.Service.ToggleTask(ctx.Ctx, c.Ref)
	if err != nil {
		return err
	}
	if t.IsComplete() {
		ctx.Printf("✓ Completed: %s\n", t.Title)
	} else {
		ctx.Printf("Reopened: %s\n", t.Title)
	}
	return nil
}

type TaskDeleteCmd struct {
	Ref string `arg:"" help:"Task ID, ID prefix or title."`
	Yes bool   `help:"Do not ask for confirmation." short:"y"`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	t, err := ctx.Service.FindTask(ctx.Ctx, c.Ref)
	if err != nil {
		return err
	}
	ok, err := confirm(fmt.Sprintf("Delete task %q?", t.Title), c.Yes)
	if err != nil {
		return err
	}
	if !ok {
		ctx.Println("Delete cancelled.")
		return nil
	}

	ctx.PerformAutomaticBackup()
	if _, err := ctx.Service.DeleteTask(ctx.Ctx, t.ID()); err != nil {
		return err
	}
	ctx.Printf("Deleted task: %s\n", t.Title)
	return nil
}

// TaskCalendarCmd prints tasks grouped by due day. With --day it prints the
// full calendar entry (habits done and tasks due) for that day only.
type TaskCalendarCmd struct {
	Day string `help:"Show a single day (YYYY-MM-DD, today or yesterday)."`
}

func (c *TaskCalendarCmd) Run(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	if c.Day != "" {
		day, err := ParseDay(c.Day)
		if err != nil {
			return err
		}
		return printCalendarDay(ctx, ctx.Service.Calendar(ctx.Ctx, day))
	}

	tasks := ctx.Service.ListTasks(ctx.Ctx)
	days := models.TaskDueCalendar(tasks)
	if len(days) == 0 {
		ctx.Println("No tasks found.")
		return nil
	}

	now := time.Now()
	for _, day := range days {
		ctx.Println(Title(day.Time().Format("Mon Jan 2, 2006")))
		for _, t := range models.TasksDueOn(tasks, day.Time()) {
			ctx.Println("  " + TaskLine(t, now))
		}
	}
	return nil
}

func printCalendarDay(ctx *Context, cal service.CalendarDay) error {
	ctx.Println(Title(cal.Day.Time().Format("Monday, January 2 2006")))

	ctx.Printf("Habits completed: %d\n", len(cal.Habits))
	for _, h := range cal.Habits {
		ctx.Printf("  ✓ %s\n", h.Name)
	}

	ctx.Printf("Tasks due: %d\n", len(cal.Tasks))
	now := time.Now()
	for _, t := range cal.Tasks {
		ctx.Println("  " + TaskLine(t, now))
	}
	return nil
}
