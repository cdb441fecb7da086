package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/lockfile"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/storage/postgres"
)

// hints maps well-known failures to a next step for the user
var hints = []struct {
	target error
	hint   string
}{
	{lockfile.ErrLocked, "another streaks command or `streaks serve` is running; wait for it or stop it"},
	{storage.ErrNoConnectionString, "run `streaks init --backend postgres --dsn <url>` to store a connection string"},
	{postgres.ErrEmbeddedCredentials, "remove the password from the DSN and keep it in the keyring or PGPASSWORD"},
	{keyring.ErrKeyringUnavailable, "pass the connection string with --dsn or STREAKS_DSN instead"},
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\nHint: " + hint
	}
	return msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Hint returns a suggestion for errors that have an obvious fix.
func Hint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.target) {
			return h.hint
		}
	}
	return ""
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
