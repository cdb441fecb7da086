package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/streaks/internal/config"
	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/keyring"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/storage/postgres"
	"github.com/julianstephens/streaks/internal/storage/redis"
	"github.com/julianstephens/streaks/internal/storage/sqlite"
)

var ErrNoConnectionString = errors.New("no PostgreSQL connection string configured (set --dsn, STREAKS_DSN or store one with `streaks init --keyring`)")

// Open builds a Store over the backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened store", "backend", cfg.Backend, "location", backend.Location())
	return New(backend), nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case constants.BackendJSON:
		return NewFileBackend(cfg.Path)
	case constants.BackendSQLite:
		return sqlite.Open(cfg.Path)
	case constants.BackendMemory:
		return NewMemoryBackend(), nil
	case constants.BackendPostgres:
		connStr, err := resolveConnString(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.Open(ctx, connStr)
	case constants.BackendRedis:
		password := cfg.Redis.Password
		if password == "" {
			if secret, err := keyring.Get(keyring.RedisPasswordEntry); err == nil {
				password = secret
			}
		}
		return redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: password,
			DB:       cfg.Redis.DB,
		})
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

// resolveConnString prefers an explicit DSN, which must not embed a password,
// and falls back to the one stored in the OS keyring.
func resolveConnString(dsn string) (string, error) {
	if dsn != "" {
		if err := postgres.ValidateConnString(dsn); err != nil {
			return "", err
		}
		return dsn, nil
	}

	connStr, err := keyring.GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoConnectionString
	}
	if err != nil {
		return "", err
	}
	return connStr, nil
}
