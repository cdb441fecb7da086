package storage

import (
	"context"
	"sync"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/models"
)

// Store owns a Backend and hands out typed collections over it. Writers to
// the same namespace are serialized so concurrent read-modify-write cycles
// cannot lose each other's updates.
type Store struct {
	backend Backend

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	habits *Collection[*models.Habit]
	tasks  *Collection[*models.Task]
}

func New(backend Backend) *Store {
	s := &Store{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
	s.habits = NewCollection[*models.Habit](s, constants.HabitsNamespace)
	s.tasks = NewCollection[*models.Task](s, constants.TasksNamespace)
	return s
}

func (s *Store) Habits() *Collection[*models.Habit] {
	return s.habits
}

func (s *Store) Tasks() *Collection[*models.Task] {
	return s.tasks
}

func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) Location() string {
	return s.backend.Location()
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Namespaces lists the keys currently held by the backend.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx)
}

func (s *Store) lockFor(namespace string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[namespace]
	if !ok {
		l = &sync.Mutex{}
		s.locks[namespace] = l
	}
	return l
}

// ReadRaw returns the stored blob for namespace without decoding it.
func (s *Store) ReadRaw(ctx context.Context, namespace string) ([]byte, bool, error) {
	return s.backend.Get(ctx, namespace)
}

// WriteRaw replaces a namespace blob under the namespace lock. Used by restore.
func (s *Store) WriteRaw(ctx context.Context, namespace string, data []byte) error {
	lock := s.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	return s.backend.Put(ctx, namespace, data)
}
