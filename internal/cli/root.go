package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/streaks/internal/backup"
	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/metrics"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
	"github.com/julianstephens/streaks/internal/storage"
)

// Context is shared by every command. The store is opened lazily by Load so
// that `init` can prepare credentials first.
type Context struct {
	Ctx        context.Context
	Config     *config.Config
	ConfigPath string
	Out        io.Writer

	Store   *storage.Store
	Service *service.Service
	Backups *backup.Manager

	lock *lockfile.Lock
}

func NewContext(ctx context.Context, cfg *config.Config, configPath string) *Context {
	return &Context{
		Ctx:        ctx,
		Config:     cfg,
		ConfigPath: configPath,
		Out:        os.Stdout,
	}
}

// Load opens the configured store if it is not open yet.
func (c *Context) Load() error {
	if c.Store != nil {
		return nil
	}
	store, err := storage.Open(c.Ctx, c.Config)
	if err != nil {
		return err
	}
	c.Use(store)
	return nil
}

// Use wires an already opened store into the context.
func (c *Context) Use(store *storage.Store) {
	c.Store = store
	c.Service = service.New(store)
	c.Backups = backup.NewManager(store, c.Config.ConfigDir)
}

// LoadForWrite opens the store and takes the cross-process writer lock.
func (c *Context) LoadForWrite() error {
	if c.lock == nil {
		lock, err := lockfile.Acquire(c.Config.ConfigDir)
		if err != nil {
			return err
		}
		c.lock = lock
	}
	return c.Load()
}

// Close releases the lock, closes the store and exports metrics if asked to.
func (c *Context) Close() error {
	if c.Config.MetricsFile != "" {
		if err := metrics.WriteTextfile(c.Config.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics textfile", "path", c.Config.MetricsFile, "error", err)
		}
	}
	if err := c.lock.Release(); err != nil {
		logger.Warn("Failed to release lockfile", "error", err)
	}
	c.lock = nil
	if c.Store != nil {
		err := c.Store.Close()
		c.Store = nil
		return err
	}
	return nil
}

// PerformAutomaticBackup creates a backup before destructive commands and
// only logs on failure.
func (c *Context) PerformAutomaticBackup() {
	if c.Backups == nil {
		return
	}
	if _, err := c.Backups.CreateBackup(c.Ctx); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// ParseDay accepts YYYY-MM-DD, "today" and "yesterday". Empty means today.
func ParseDay(s string) (models.Day, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return models.Today(), nil
	case "yesterday":
		return models.Today().AddDays(-1), nil
	}
	day, err := models.ParseDay(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD, today or yesterday)", s)
	}
	return day, nil
}

// ParseDue accepts a day (due at local midnight) or "YYYY-MM-DD HH:MM".
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(constants.DateFormat+" 15:04", s, time.Local); err == nil {
		return t, nil
	}
	day, err := ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (expected YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")", s)
	}
	return day.Time(), nil
}
