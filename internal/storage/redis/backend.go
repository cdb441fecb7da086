package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/streaks/internal/constants"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Backend stores each collection as a plain string value under streaks:<namespace>.
type Backend struct {
	rdb  *redis.Client
	addr string
	db   int
}

func Open(ctx context.Context, opts Options) (*Backend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Backend{rdb: rdb, addr: opts.Addr, db: opts.DB}, nil
}

func key(namespace string) string {
	return constants.RedisKeyPrefix + namespace
}

func (b *Backend) Close() error {
	return b.rdb.Close()
}

func (b *Backend) Location() string {
	return fmt.Sprintf("redis://%s/%d", b.addr, b.db)
}

func (b *Backend) Get(ctx context.Context, namespace string) ([]byte, bool, error) {
	data, err := b.rdb.Get(ctx, key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read collection %s: %w", namespace, err)
	}
	return data, true, nil
}

// Put is a single SET, which redis applies atomically.
func (b *Backend) Put(ctx context.Context, namespace string, data []byte) error {
	if err := b.rdb.Set(ctx, key(namespace), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", namespace, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, namespace string) error {
	if err := b.rdb.Del(ctx, key(namespace)).Err(); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", namespace, err)
	}
	return nil
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var namespaces []string
	iter := b.rdb.Scan(ctx, 0, constants.RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		namespaces = append(namespaces, strings.TrimPrefix(iter.Val(), constants.RedisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}
