package lockfile

import (
	"errors"
	"os"
	"testing"

	"github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func stubProcesses(t *testing.T, alive map[int]string) {
	t.Helper()
	oldFind, oldList := findProcessFunc, listProcessesFunc
	t.Cleanup(func() {
		findProcessFunc = oldFind
		listProcessesFunc = oldList
	})

	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := alive[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
	listProcessesFunc = func() ([]ps.Process, error) {
		var out []ps.Process
		for pid, exe := range alive {
			out = append(out, &mockProcess{pid: pid, executable: exe})
		}
		return out, nil
	}
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	stubProcesses(t, map[int]string{os.Getpid(): "streaks"})

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	holder, alive, err := Inspect(dir)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if holder.PID != os.Getpid() || !alive {
		t.Errorf("Inspect() = %+v alive=%v", holder, alive)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire() error = %v, want ErrLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(Path(dir)); !os.IsNotExist(err) {
		t.Error("lockfile should be gone after Release")
	}
}

func TestAcquireTakesOverStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		alive   map[int]string
	}{
		{name: "dead pid", content: "999999|1700000000", alive: map[int]string{}},
		{name: "pid reused by another program", content: "4242|1700000000", alive: map[int]string{4242: "vim"}},
		{name: "malformed", content: "garbage", alive: map[int]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			stubProcesses(t, tt.alive)
			if err := os.WriteFile(Path(dir), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			lock, err := Acquire(dir)
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			defer lock.Release()

			holder, _, err := Inspect(dir)
			if err != nil || holder.PID != os.Getpid() {
				t.Errorf("lock not taken over: %+v, %v", holder, err)
			}
		})
	}
}

func TestAcquireRespectsLiveHolder(t *testing.T) {
	dir := t.TempDir()
	stubProcesses(t, map[int]string{4242: "streaks"})
	if err := os.WriteFile(Path(dir), []byte("4242|1700000000"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Errorf("Acquire() error = %v, want ErrLocked", err)
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	dir := t.TempDir()
	stubProcesses(t, map[int]string{})

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(dir), []byte("4242|1700000000"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Error("Release should not remove a lockfile owned by someone else")
	}
}

func TestOtherInstances(t *testing.T) {
	stubProcesses(t, map[int]string{
		os.Getpid(): "streaks",
		100:         "streaks",
		200:         "bash",
	})

	pids, err := OtherInstances()
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 1 || pids[0] != 100 {
		t.Errorf("OtherInstances() = %v, want [100]", pids)
	}
}
