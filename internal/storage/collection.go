package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/metrics"
)

// ErrCorruptCollection marks a stored blob that could not be decoded.
var ErrCorruptCollection = errors.New("corrupt collection")

// ErrItemNotFound is returned by Update when no stored item has the id.
var ErrItemNotFound = errors.New("item not found")

// quarantineSuffix is appended to a namespace to keep an undecodable blob
// around before it is overwritten.
const quarantineSuffix = ".corrupt"

// Entity is anything with a stable identity.
type Entity interface {
	ID() string
}

// Collection is the persisted list of one entity type, stored as a single
// JSON array under its namespace. Every write rewrites the whole array.
type Collection[T Entity] struct {
	store     *Store
	namespace string
}

func NewCollection[T Entity](s *Store, namespace string) *Collection[T] {
	return &Collection[T]{store: s, namespace: namespace}
}

func (c *Collection[T]) Namespace() string {
	return c.namespace
}

// LoadAll returns the stored items in their persisted order. It never fails:
// a missing namespace yields an empty slice, and so does a blob that cannot
// be read or decoded. Failures are logged; decode failures are also counted.
func (c *Collection[T]) LoadAll(ctx context.Context) []T {
	items, _, err := c.read(ctx)
	metrics.RecordOperation(c.namespace, "load", err)
	if err != nil {
		logger.Warn("Failed to load collection, treating as empty",
			"collection", c.namespace, "error", err)
		if errors.Is(err, ErrCorruptCollection) {
			metrics.RecordDecodeFailure(c.namespace)
		}
		return []T{}
	}
	metrics.RecordLoad(c.namespace, len(items))
	return items
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool) {
	for _, item := range c.LoadAll(ctx) {
		if item.ID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// SaveAll replaces the stored collection with items. On failure the previous
// contents remain in place.
func (c *Collection[T]) SaveAll(ctx context.Context, items []T) error {
	lock := c.store.lockFor(c.namespace)
	lock.Lock()
	defer lock.Unlock()

	return c.save(ctx, items)
}

// Upsert replaces the stored item with the same id in place, or appends item
// if no stored item has its id.
func (c *Collection[T]) Upsert(ctx context.Context, item T) error {
	lock := c.store.lockFor(c.namespace)
	lock.Lock()
	defer lock.Unlock()

	items, err := c.loadForWrite(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range items {
		if existing.ID() == item.ID() {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	return c.save(ctx, items)
}

// Update loads the item with id, passes it to fn and saves what fn returns in
// its place. The whole cycle runs under the namespace lock, so concurrent
// updates to the same collection never overwrite each other. Nothing is
// written when fn fails or the id is unknown.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	var zero T

	lock := c.store.lockFor(c.namespace)
	lock.Lock()
	defer lock.Unlock()

	items, err := c.loadForWrite(ctx)
	if err != nil {
		return zero, err
	}

	for i, existing := range items {
		if existing.ID() != id {
			continue
		}
		updated, err := fn(existing)
		if err != nil {
			return zero, err
		}
		if updated.ID() != id {
			return zero, fmt.Errorf("update of %s changed its id to %s", id, updated.ID())
		}
		items[i] = updated
		if err := c.save(ctx, items); err != nil {
			return zero, err
		}
		return updated, nil
	}
	return zero, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// RemoveByID drops every stored item with the given id. An unknown id is a
// no-op and nothing is written.
func (c *Collection[T]) RemoveByID(ctx context.Context, id string) error {
	lock := c.store.lockFor(c.namespace)
	lock.Lock()
	defer lock.Unlock()

	items, err := c.loadForWrite(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID() != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}

	return c.save(ctx, kept)
}

func (c *Collection[T]) read(ctx context.Context) ([]T, []byte, error) {
	data, ok, err := c.store.backend.Get(ctx, c.namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", c.namespace, err)
	}
	if !ok || len(data) == 0 {
		return []T{}, nil, nil
	}

	var decoded []T
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, data, fmt.Errorf("%w %s: %v", ErrCorruptCollection, c.namespace, err)
	}

	items := make([]T, 0, len(decoded))
	for _, item := range decoded {
		if isNil(item) {
			continue
		}
		items = append(items, item)
	}
	return items, data, nil
}

// loadForWrite is the read half of a read-modify-write cycle. Unlike LoadAll
// it refuses to continue when the backend itself failed, since writing back
// would clobber data we never saw. An undecodable blob is copied aside first
// and then treated as empty.
func (c *Collection[T]) loadForWrite(ctx context.Context) ([]T, error) {
	items, raw, err := c.read(ctx)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, ErrCorruptCollection) {
		metrics.RecordOperation(c.namespace, "load", err)
		logger.Error("Failed to load collection for update", "collection", c.namespace, "error", err)
		return nil, err
	}

	metrics.RecordDecodeFailure(c.namespace)
	quarantine := c.namespace + quarantineSuffix
	if qerr := c.store.backend.Put(ctx, quarantine, raw); qerr != nil {
		logger.Error("Failed to quarantine corrupt collection", "collection", c.namespace, "error", qerr)
		return nil, fmt.Errorf("failed to quarantine corrupt %s: %w", c.namespace, qerr)
	}
	logger.Warn("Corrupt collection moved aside, starting empty",
		"collection", c.namespace, "quarantine", quarantine, "error", err)
	return []T{}, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	start := time.Now()

	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		metrics.RecordOperation(c.namespace, "save", err)
		logger.Error("Failed to encode collection", "collection", c.namespace, "error", err)
		return fmt.Errorf("failed to encode %s: %w", c.namespace, err)
	}

	if err := c.store.backend.Put(ctx, c.namespace, data); err != nil {
		metrics.RecordOperation(c.namespace, "save", err)
		logger.Error("Failed to save collection", "collection", c.namespace, "error", err)
		return fmt.Errorf("failed to save %s: %w", c.namespace, err)
	}

	metrics.RecordOperation(c.namespace, "save", nil)
	metrics.RecordSave(c.namespace, len(items), time.Since(start))
	logger.Debug("Saved collection", "collection", c.namespace, "items", len(items))
	return nil
}

func isNil[T any](v T) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
