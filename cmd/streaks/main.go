package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/streaks/internal/cli"
	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/errors"
	"github.com/julianstephens/streaks/internal/logger"
)

var CLI struct {
	Version     kong.VersionFlag
	Config      string `help:"Config file path." type:"path" default:"~/.config/streaks/config.yaml"`
	Backend     string `help:"Storage backend (json, sqlite, postgres, redis, memory)."`
	Path        string `help:"Data directory (json) or database file (sqlite)." type:"path"`
	DSN         string `help:"Postgres connection string without a password." name:"dsn"`
	Debug       bool   `help:"Log debug output to stderr."`
	MetricsFile string `help:"Write Prometheus metrics to this file on exit." type:"path"`

	Init  cli.InitCmd `cmd:"" help:"Write the config file and initialize storage."`
	Tui   cli.TuiCmd  `cmd:"" help:"Open the interactive view." default:"1"`
	Habit struct {
		Add      cli.HabitAddCmd      `cmd:"" help:"Add a new habit."`
		List     cli.HabitListCmd     `cmd:"" help:"List habits with their streaks." default:"1"`
		Edit     cli.HabitEditCmd     `cmd:"" help:"Edit an existing habit."`
		Toggle   cli.HabitToggleCmd   `cmd:"" help:"Toggle today's completion."`
		Mark     cli.HabitMarkCmd     `cmd:"" help:"Mark a habit done on a day."`
		Unmark   cli.HabitUnmarkCmd   `cmd:"" help:"Clear a habit's completion on a day."`
		Delete   cli.HabitDeleteCmd   `cmd:"" help:"Delete a habit."`
		Calendar cli.HabitCalendarCmd `cmd:"" help:"Show recent completions as a grid."`
	} `cmd:"" help:"Manage habits."`
	Task struct {
		Add      cli.TaskAddCmd      `cmd:"" help:"Add a new task."`
		List     cli.TaskListCmd     `cmd:"" help:"List tasks." default:"1"`
		Edit     cli.TaskEditCmd     `cmd:"" help:"Edit an existing task."`
		Toggle   cli.TaskToggleCmd   `cmd:"" help:"Toggle a task's completion."`
		Delete   cli.TaskDeleteCmd   `cmd:"" help:"Delete a task."`
		Calendar cli.TaskCalendarCmd `cmd:"" help:"Show tasks by due day."`
	} `cmd:"" help:"Manage tasks."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a backup now."`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage backups."`
	Doctor cli.DoctorCmd `cmd:"" help:"Run health checks."`
	Serve  cli.ServeCmd  `cmd:"" help:"Serve the HTTP API."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit streaks and tasks"),
		kong.UsageOnError(),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	appCtx := cli.NewContext(context.Background(), cfg, CLI.Config)
	err = kctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		errors.Fatal(err)
	}
}

// applyFlags layers command-line flags over the loaded config.
func applyFlags(cfg *config.Config) {
	if CLI.Backend != "" {
		cfg.Backend = CLI.Backend
	}
	if CLI.Path != "" {
		cfg.Path = CLI.Path
	}
	if CLI.DSN != "" {
		cfg.DSN = CLI.DSN
	}
	if CLI.MetricsFile != "" {
		cfg.MetricsFile = CLI.MetricsFile
	}
	if CLI.Debug {
		cfg.Debug = true
	}
}
