package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/migration"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/validation"
)

type DoctorCmd struct{}

// migrator is implemented by the SQL backends.
type migrator interface {
	Migrations() (*migration.Runner, error)
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	fail := func(name string, err error) {
		ctx.Printf("❌ %s: FAIL\n", name)
		ctx.Printf("   Error: %v\n", err)
		hasError = true
	}
	warn := func(name string, err error) {
		ctx.Printf("⚠ %s: WARNING\n", name)
		for _, line := range strings.Split(strings.TrimRight(err.Error(), "\n"), "\n") {
			ctx.Printf("   %s\n", line)
		}
	}
	ok := func(name string) {
		ctx.Printf("✓ %s: OK\n", name)
	}
	skip := func(name, why string) {
		ctx.Printf("⊘ %s: SKIPPED (%s)\n", name, why)
	}

	storeReachable := false
	if err := checkStoreReachable(ctx); err != nil {
		fail("Store reachable", err)
	} else {
		ok("Store reachable")
		storeReachable = true
	}

	if !storeReachable {
		skip("Schema version", "store not reachable")
		skip("Collections decode", "store not reachable")
		skip("Data validation", "store not reachable")
		skip("Duplicate days", "store not reachable")
	} else {
		if m, isSQL := ctx.Store.Backend().(migrator); isSQL {
			if err := checkSchemaVersion(m); err != nil {
				fail("Schema version", err)
			} else {
				ok("Schema version")
			}
		} else {
			skip("Schema version", ctx.Config.Backend+" backend has no schema")
		}

		if err := checkCollectionsDecode(ctx); err != nil {
			fail("Collections decode", err)
		} else {
			ok("Collections decode")
		}

		if err := checkValidation(ctx); err != nil {
			warn("Data validation", err)
		} else {
			ok("Data validation")
		}

		if err := checkDuplicateDays(ctx); err != nil {
			warn("Duplicate days", err)
		} else {
			ok("Duplicate days")
		}
	}

	if err := checkLockfile(ctx); err != nil {
		warn("Lockfile", err)
	} else {
		ok("Lockfile")
	}

	if err := checkOtherInstances(); err != nil {
		warn("Other instances", err)
	} else {
		ok("Other instances")
	}

	if !storeReachable {
		skip("Backups present", "store not reachable")
	} else if err := checkBackupsPresent(ctx); err != nil {
		warn("Backups present", err)
	} else {
		ok("Backups present")
	}

	if needsKeyring(ctx) {
		if keyring.IsAvailable() {
			ok("Keyring")
		} else {
			fail("Keyring", keyring.ErrKeyringUnavailable)
		}
	} else {
		skip("Keyring", "no secrets needed")
	}

	if err := checkClockTimezone(ctx); err != nil {
		fail("Clock/timezone", err)
	} else {
		ok("Clock/timezone")
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if _, err := ctx.Store.Namespaces(ctx.Ctx); err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	return nil
}

func checkSchemaVersion(m migrator) error {
	runner, err := m.Migrations()
	if err != nil {
		return err
	}
	if err := runner.Validate(); err != nil {
		return err
	}

	current, err := runner.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

// checkCollectionsDecode catches blobs that LoadAll would silently treat as
// empty, plus leftovers from an earlier quarantine.
func checkCollectionsDecode(ctx *Context) error {
	decoders := map[string]func([]byte) error{
		constants.HabitsNamespace: func(data []byte) error {
			var habits []*models.Habit
			return json.Unmarshal(data, &habits)
		},
		constants.TasksNamespace: func(data []byte) error {
			var tasks []*models.Task
			return json.Unmarshal(data, &tasks)
		},
	}

	var problems []string
	for _, ns := range []string{constants.HabitsNamespace, constants.TasksNamespace} {
		data, found, err := ctx.Store.ReadRaw(ctx.Ctx, ns)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", ns, err)
		}
		if !found {
			continue
		}
		if err := decoders[ns](data); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", ns, err))
		}
	}

	namespaces, err := ctx.Store.Namespaces(ctx.Ctx)
	if err != nil {
		return err
	}
	for _, ns := range namespaces {
		if strings.HasSuffix(ns, ".corrupt") {
			problems = append(problems, fmt.Sprintf("quarantined data found in %s", ns))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// checkDuplicateDays reads the stored habit log directly, since decoding a
// habit collapses repeated days into one. The next write normalizes them.
func checkDuplicateDays(ctx *Context) error {
	data, found, err := ctx.Store.ReadRaw(ctx.Ctx, constants.HabitsNamespace)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", constants.HabitsNamespace, err)
	}
	if !found {
		return nil
	}

	var stored []struct {
		Name            string   `json:"name"`
		CompletionDates []string `json:"completionDates"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		// Reported by the decode check.
		return nil
	}

	var problems []string
	for _, h := range stored {
		seen := make(map[string]bool, len(h.CompletionDates))
		for _, day := range h.CompletionDates {
			if seen[day] {
				problems = append(problems, fmt.Sprintf("habit %q lists %s more than once", h.Name, day))
				continue
			}
			seen[day] = true
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "\n"))
	}
	return nil
}

func checkValidation(ctx *Context) error {
	v := validation.New()
	habitResult := v.ValidateHabits(ctx.Store.Habits().LoadAll(ctx.Ctx), models.Today())
	taskResult := v.ValidateTasks(ctx.Store.Tasks().LoadAll(ctx.Ctx))

	var b strings.Builder
	if habitResult.HasConflicts() {
		b.WriteString(habitResult.FormatReport())
	}
	if taskResult.HasConflicts() {
		b.WriteString(taskResult.FormatReport())
	}
	if b.Len() > 0 {
		return fmt.Errorf("%s", b.String())
	}
	return nil
}

func checkLockfile(ctx *Context) error {
	holder, alive, err := lockfile.Inspect(ctx.Config.ConfigDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unreadable lockfile %s: %w", lockfile.Path(ctx.Config.ConfigDir), err)
	}
	if holder.PID == os.Getpid() {
		return nil
	}
	if alive {
		return fmt.Errorf("held by running process %d since %s", holder.PID, holder.StartedAt.Format(time.RFC3339))
	}
	return fmt.Errorf("stale lock left by process %d; it will be taken over by the next write", holder.PID)
}

func checkOtherInstances() error {
	pids, err := lockfile.OtherInstances()
	if err != nil {
		return err
	}
	if len(pids) > 0 {
		return fmt.Errorf("other streaks processes running: %v", pids)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	backups, err := ctx.Backups.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'streaks backup create'")
	}
	return nil
}

// needsKeyring reports whether opening the store depends on a keyring secret.
func needsKeyring(ctx *Context) bool {
	return ctx.Config.Backend == constants.BackendPostgres && ctx.Config.DSN == ""
}

func checkClockTimezone(ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	// Completion days are local calendar days, so a UTC clock shifts them.
	if _, offset := now.Zone(); offset == 0 && now.Location() == time.UTC {
		ctx.Printf("   Note: timezone is UTC\n")
	}
	return nil
}
