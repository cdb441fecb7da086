package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestConnectionStringLifecycle(t *testing.T) {
	gokeyring.MockInit()

	connStr := "postgres://habits@localhost:5432/streaks?sslmode=disable"
	if err := SetConnectionString(connStr); err != nil {
		t.Fatalf("SetConnectionString() error = %v", err)
	}

	got, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() error = %v", err)
	}
	if got != connStr {
		t.Errorf("GetConnectionString() = %q, want %q", got, connStr)
	}

	if err := DeleteConnectionString(); err != nil {
		t.Fatalf("DeleteConnectionString() error = %v", err)
	}
	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete, error = %v, want ErrNotFound", err)
	}
}

func TestSetEmptySecret(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(RedisPasswordEntry, ""); err == nil {
		t.Error("expected an error for an empty secret")
	}
}

func TestDeleteMissing(t *testing.T) {
	gokeyring.MockInit()

	if err := Delete(RedisPasswordEntry); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	if err := Set(RedisPasswordEntry, "hunter2"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("connection string should be unset, got %v", err)
	}
	if !IsAvailable() {
		t.Error("mock keyring should report available")
	}
}
