package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/streaks/internal/constants"
)

var (
	// ErrNotFound is returned when nothing is stored under the requested entry
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Entry names under the streaks service
const (
	ConnectionStringEntry = constants.DefaultKeyringUser
	RedisPasswordEntry    = "redis-password"
)

// Get reads a secret stored under the streaks service.
func Get(entry string) (string, error) {
	secret, err := keyring.Get(constants.AppName, entry)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func Set(entry, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", entry)
	}
	if err := keyring.Set(constants.AppName, entry, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", entry, err)
	}
	return nil
}

func Delete(entry string) error {
	err := keyring.Delete(constants.AppName, entry)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s from keyring: %w", entry, err)
	}
	return nil
}

// GetConnectionString returns the stored postgres connection string.
func GetConnectionString() (string, error) {
	return Get(ConnectionStringEntry)
}

func SetConnectionString(connStr string) error {
	return Set(ConnectionStringEntry, connStr)
}

func DeleteConnectionString() error {
	return Delete(ConnectionStringEntry)
}

// IsAvailable probes the keyring with a read. A missing entry still means the
// keyring itself answered.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
