package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
)

var (
	// ErrLocked is returned when another live streaks process holds the lock
	ErrLocked    = errors.New("store is locked by another streaks process")
	ErrMalformed = errors.New("lockfile is malformed")
)

var (
	findProcessFunc   = ps.FindProcess
	listProcessesFunc = ps.Processes
)

// Holder is the parsed content of a lockfile: "pid|started_at".
type Holder struct {
	PID       int
	StartedAt time.Time
}

// Lock is an acquired writer lock. Release it when done.
type Lock struct {
	path   string
	holder Holder
}

func Path(dir string) string {
	return filepath.Join(dir, constants.LockfileName)
}

// Acquire takes the writer lock in dir. A lockfile left behind by a process
// that is no longer running is taken over.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := Path(dir)
	holder := Holder{PID: os.Getpid(), StartedAt: time.Now()}

	for attempt := 0; attempt < 2; attempt++ {
		err := create(path, holder)
		if err == nil {
			return &Lock{path: path, holder: holder}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		existing, alive, err := Inspect(dir)
		if err == nil && alive {
			return nil, fmt.Errorf("%w (pid %d since %s)", ErrLocked, existing.PID, existing.StartedAt.Format(time.RFC3339))
		}
		logger.Warn("Removing stale lockfile", "path", path, "pid", existing.PID, "error", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, ErrLocked
}

func create(path string, holder Holder) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("%d|%d", holder.PID, holder.StartedAt.Unix())
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Release removes the lockfile if it still belongs to this lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	current, err := read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if current.PID != l.holder.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// Inspect reads the lockfile in dir and reports whether its holder is a live
// streaks process.
func Inspect(dir string) (Holder, bool, error) {
	holder, err := read(Path(dir))
	if err != nil {
		return Holder{}, false, err
	}
	return holder, isAlive(holder.PID), nil
}

func read(path string) (Holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}

	pidStr, startedStr, ok := strings.Cut(strings.TrimSpace(string(content)), "|")
	if !ok {
		return Holder{}, ErrMalformed
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return Holder{}, fmt.Errorf("%w: invalid process ID", ErrMalformed)
	}
	started, err := strconv.ParseInt(startedStr, 10, 64)
	if err != nil {
		return Holder{}, fmt.Errorf("%w: invalid start time", ErrMalformed)
	}
	return Holder{PID: pid, StartedAt: time.Unix(started, 0)}, nil
}

func isAlive(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

// OtherInstances lists running streaks processes other than this one.
func OtherInstances() ([]int, error) {
	processes, err := listProcessesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	self := os.Getpid()
	var pids []int
	for _, p := range processes {
		if p.Pid() != self && strings.HasPrefix(p.Executable(), constants.AppName) {
			pids = append(pids, p.Pid())
		}
	}
	return pids, nil
}
