package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/models"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "not found has no hint",
			err:      fmt.Errorf("%w: read", models.ErrHabitNotFound),
			expected: "Error: habit not found: read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatAddsHint(t *testing.T) {
	err := fmt.Errorf("open store: %w", lockfile.ErrLocked)
	got := Format(err)
	if !strings.HasPrefix(got, "Error: open store: ") || !strings.Contains(got, "\nHint: ") {
		t.Errorf("Format() = %q, want an error line and a hint line", got)
	}
}

func TestFormatf(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "simple message",
			format:   "something went wrong",
			args:     nil,
			expected: "Error: something went wrong",
		},
		{
			name:     "formatted message",
			format:   "habit %q has %d completions",
			args:     []interface{}{"Read", 3},
			expected: `Error: habit "Read" has 3 completions`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Formatf(tt.format, tt.args...)
			if result != tt.expected {
				t.Errorf("Formatf(%q, %v) = %q, want %q", tt.format, tt.args, result, tt.expected)
			}
		})
	}
}

// TestFatal runs Fatal in a subprocess and checks the exit code and stderr
func TestFatal(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL") == "1" {
		Fatal(errors.New("test error"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Fatal() did not exit with error: %v", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("Fatal() exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(stderr.String(), "Error: test error") {
		t.Errorf("Fatal() stderr = %q, want to contain %q", stderr.String(), "Error: test error")
	}
}

func TestFatal_NilError(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal_NilError")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL_NIL=1")

	if err := cmd.Run(); err != nil {
		t.Errorf("Fatal(nil) should not exit, but got error: %v", err)
	}
}

func TestFatalf(t *testing.T) {
	if os.Getenv("GO_TEST_FATALF") == "1" {
		Fatalf("store at %s is unreadable", "/tmp/x")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatalf")
	cmd.Env = append(os.Environ(), "GO_TEST_FATALF=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Fatalf() did not exit with error: %v", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("Fatalf() exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(stderr.String(), "Error: store at /tmp/x is unreadable") {
		t.Errorf("Fatalf() stderr = %q", stderr.String())
	}
}
