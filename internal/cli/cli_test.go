package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
	"github.com/julianstephens/streaks/internal/storage"
)

func setupTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = constants.BackendMemory
	cfg.ConfigDir = t.TempDir()

	ctx := NewContext(context.Background(), cfg, filepath.Join(cfg.ConfigDir, "config.yaml"))
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Use(storage.New(storage.NewMemoryBackend()))
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, out
}

func TestHabitCommands(t *testing.T) {
	ctx, out := setupTestContext(t)

	add := &HabitAddCmd{Name: "Read", Description: "20 pages", Frequency: 5}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out.String(), "Added habit: Read") {
		t.Errorf("unexpected add output: %q", out.String())
	}

	out.Reset()
	if err := (&HabitToggleCmd{Ref: "read"}).Run(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !strings.Contains(out.String(), "1 day streak") {
		t.Errorf("unexpected toggle output: %q", out.String())
	}

	if err := (&HabitMarkCmd{Ref: "Read", Day: "yesterday"}).Run(ctx); err != nil {
		t.Fatalf("mark: %v", err)
	}
	h, err := ctx.Service.FindHabit(ctx.Ctx, "Read")
	if err != nil {
		t.Fatal(err)
	}
	if h.CurrentStreak() != 2 {
		t.Errorf("streak after marking yesterday = %d, want 2", h.CurrentStreak())
	}

	if err := (&HabitUnmarkCmd{Ref: "Read", Day: "today"}).Run(ctx); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	h, _ = ctx.Service.FindHabit(ctx.Ctx, "Read")
	if h.IsCompletedToday() || h.CurrentStreak() != 1 {
		t.Errorf("after unmark: done today %v, streak %d", h.IsCompletedToday(), h.CurrentStreak())
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "Read") || !strings.Contains(out.String(), "20 pages") {
		t.Errorf("list output missing habit: %q", out.String())
	}

	out.Reset()
	if err := (&HabitCalendarCmd{Days: 7}).Run(ctx); err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if !strings.Contains(out.String(), "Last 7 days") {
		t.Errorf("calendar output: %q", out.String())
	}
}

func TestHabitMarkRejectsFutureDay(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Run", Frequency: 3}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	tomorrow := models.Today().AddDays(1).String()
	if err := (&HabitMarkCmd{Ref: "Run", Day: tomorrow}).Run(ctx); err == nil {
		t.Error("expected marking a future day to fail")
	}
}

func TestHabitAddValidation(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Run", Frequency: 9}).Run(ctx); err == nil {
		t.Error("expected frequency 9 to be rejected")
	}
	if n := len(ctx.Service.ListHabits(ctx.Ctx)); n != 0 {
		t.Errorf("rejected habit was stored: %d habits", n)
	}
}

func TestHabitDeleteCreatesBackup(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Floss", Frequency: 7}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&HabitDeleteCmd{Ref: "Floss", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted habit: Floss") {
		t.Errorf("delete output: %q", out.String())
	}
	if n := len(ctx.Service.ListHabits(ctx.Ctx)); n != 0 {
		t.Errorf("habit still present after delete")
	}

	backups, err := ctx.Backups.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Errorf("expected an automatic backup before delete, got %d", len(backups))
	}
}

func TestTaskCommands(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&TaskAddCmd{Title: "Pay rent", Due: "2024-03-10 17:00", Note: "online"}).Run(ctx); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := (&TaskAddCmd{Title: "Call mom", Due: "2024-03-11"}).Run(ctx); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := (&TaskToggleCmd{Ref: "pay rent"}).Run(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	out.Reset()
	if err := (&TaskListCmd{Pending: true}).Run(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out.String(), "Pay rent") || !strings.Contains(out.String(), "Call mom") {
		t.Errorf("pending list should only show open tasks: %q", out.String())
	}

	out.Reset()
	if err := (&TaskCalendarCmd{Day: "2024-03-10"}).Run(ctx); err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if !strings.Contains(out.String(), "Tasks due: 1") || !strings.Contains(out.String(), "Pay rent") {
		t.Errorf("calendar output: %q", out.String())
	}

	if err := (&TaskEditCmd{Ref: "Call mom", ClearNote: true, Title: "Call dad"}).Run(ctx); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := ctx.Service.FindTask(ctx.Ctx, "Call dad"); err != nil {
		t.Errorf("edited task not found: %v", err)
	}

	if err := (&TaskDeleteCmd{Ref: "Call dad", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := len(ctx.Service.ListTasks(ctx.Ctx)); n != 1 {
		t.Errorf("tasks after delete = %d, want 1", n)
	}
}

func TestBackupCommands(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Walk", Frequency: 7}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	backups, err := ctx.Backups.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v, %v", backups, err)
	}

	if _, err := ctx.Service.DeleteHabit(ctx.Ctx, "Walk"); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(backups[0].Path), Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := ctx.Service.FindHabit(ctx.Ctx, "Walk"); err != nil {
		t.Errorf("restored habit missing: %v", err)
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "2 total") {
		t.Errorf("expected the original and the pre-restore backup: %q", out.String())
	}

	if err := (&BackupRestoreCmd{BackupFile: "missing.json", Yes: true}).Run(ctx); err == nil {
		t.Error("expected restoring a missing file to fail")
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Backend = constants.BackendJSON
	cfg.Path = filepath.Join(dir, "data")
	cfg.ConfigDir = dir

	ctx := NewContext(context.Background(), cfg, filepath.Join(dir, "config.yaml"))
	ctx.Out = &bytes.Buffer{}
	t.Cleanup(func() { _ = ctx.Close() })

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	for _, ns := range []string{constants.HabitsNamespace, constants.TasksNamespace} {
		data, err := os.ReadFile(filepath.Join(cfg.Path, ns+".json"))
		if err != nil {
			t.Fatalf("%s not seeded: %v", ns, err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("%s seeded with %q, want []", ns, data)
		}
	}

	// A second init must not clobber existing data.
	if _, err := ctx.Service.AddHabit(ctx.Ctx, service.HabitInput{Name: "Read"}); err != nil {
		t.Fatal(err)
	}
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if n := len(ctx.Service.ListHabits(ctx.Ctx)); n != 1 {
		t.Errorf("re-init lost data: %d habits", n)
	}
}

func TestInitRejectsMemoryBackend(t *testing.T) {
	ctx, _ := setupTestContext(t)
	if err := (&InitCmd{}).Run(ctx); err == nil {
		t.Error("expected init with the memory backend to fail")
	}
}

func TestDoctorHealthyStore(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&HabitAddCmd{Name: "Read", Frequency: 7}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor: %v\n%s", err, out.String())
	}
	for _, want := range []string{"✓ Store reachable: OK", "✓ Collections decode: OK", "⊘ Schema version: SKIPPED", "✓ Duplicate days: OK", "⚠ Backups present: WARNING"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("doctor output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDoctorReportsCorruptCollection(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := ctx.Store.WriteRaw(ctx.Ctx, constants.HabitsNamespace, []byte(`{"not":"a list"}`)); err != nil {
		t.Fatal(err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("expected doctor to fail on a corrupt collection")
	}
	if !strings.Contains(out.String(), "❌ Collections decode: FAIL") {
		t.Errorf("doctor output:\n%s", out.String())
	}
}

func TestDoctorReportsDuplicateDays(t *testing.T) {
	ctx, out := setupTestContext(t)
	raw := `[{"id":"h1","name":"Read","createdDate":"2024-03-01T00:00:00Z","targetFrequency":7,` +
		`"completionDates":["2024-03-02","2024-03-03","2024-03-02"]}]`
	if err := ctx.Store.WriteRaw(ctx.Ctx, constants.HabitsNamespace, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("duplicate days should only warn: %v\n%s", err, out.String())
	}
	for _, want := range []string{"⚠ Duplicate days: WARNING", `habit "Read" lists 2024-03-02 more than once`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("doctor output missing %q:\n%s", want, out.String())
		}
	}
}

func TestParseDay(t *testing.T) {
	today := models.Today()
	tests := []struct {
		in      string
		want    models.Day
		wantErr bool
	}{
		{in: "", want: today},
		{in: "today", want: today},
		{in: "Yesterday", want: today.AddDays(-1)},
		{in: "2024-02-29", want: "2024-02-29"},
		{in: "2023-02-29", wantErr: true},
		{in: "next week", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDay(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDue(t *testing.T) {
	got, err := ParseDue("2024-03-10 17:30")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.March, 10, 17, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseDue = %v, want %v", got, want)
	}

	got, err = ParseDue("2024-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if got.Hour() != 0 || models.DayOf(got) != "2024-03-10" {
		t.Errorf("ParseDue(day) = %v, want local midnight", got)
	}

	if _, err := ParseDue("10/03/2024"); err == nil {
		t.Error("expected an error for a non-ISO date")
	}
}
