package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/metrics"
	"github.com/julianstephens/streaks/internal/models"
)

// countingBackend wraps a MemoryBackend and can be told to fail.
type countingBackend struct {
	*MemoryBackend
	mu     sync.Mutex
	puts     int
	getErr   error
	putErr   error
	getDelay time.Duration
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: NewMemoryBackend()}
}

func (c *countingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	if c.getDelay > 0 {
		time.Sleep(c.getDelay)
	}
	return c.MemoryBackend.Get(ctx, key)
}

func (c *countingBackend) Put(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	return c.MemoryBackend.Put(ctx, key, data)
}

func ids[T Entity](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID()
	}
	return out
}

func TestLoadAllMissingNamespace(t *testing.T) {
	s := New(NewMemoryBackend())
	habits := s.Habits().LoadAll(context.Background())
	if habits == nil || len(habits) != 0 {
		t.Errorf("LoadAll() = %v, want empty non-nil slice", habits)
	}
}

func TestUpsertMerge(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	col := s.Habits()

	a := models.NewHabit("A")
	b := models.NewHabit("B")
	if err := col.SaveAll(ctx, []*models.Habit{a, b}); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	a.SetName("A prime").MarkCompleted(time.Now())
	if err := col.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got := col.LoadAll(ctx)
	if len(got) != 2 || got[0].ID() != a.ID() || got[1].ID() != b.ID() {
		t.Fatalf("after replacing upsert = %v, want [A', B]", ids(got))
	}
	if got[0].Name != "A prime" || !got[0].IsCompletedToday() {
		t.Errorf("stored A was not replaced: %+v", got[0])
	}

	c := models.NewHabit("C")
	if err := col.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got = col.LoadAll(ctx)
	want := []string{a.ID(), b.ID(), c.ID()}
	if strings.Join(ids(got), ",") != strings.Join(want, ",") {
		t.Errorf("after inserting upsert = %v, want %v", ids(got), want)
	}
}

func TestUpsertIntoEmpty(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	task := models.NewTask("Buy milk")
	if err := s.Tasks().Upsert(ctx, task); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got := s.Tasks().LoadAll(ctx)
	if len(got) != 1 || got[0].ID() != task.ID() {
		t.Errorf("LoadAll() = %v", ids(got))
	}
}

func TestRoundTripStability(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend)

	h := models.NewHabit("Read", models.WithDescription("20 pages"))
	h.MarkCompleted(time.Now().AddDate(0, 0, -1)).MarkCompleted(time.Now())
	if err := s.Habits().SaveAll(ctx, []*models.Habit{h, models.NewHabit("Run")}); err != nil {
		t.Fatal(err)
	}
	first, _, _ := backend.Get(ctx, constants.HabitsNamespace)

	if err := s.Habits().SaveAll(ctx, s.Habits().LoadAll(ctx)); err != nil {
		t.Fatal(err)
	}
	second, _, _ := backend.Get(ctx, constants.HabitsNamespace)

	if string(first) != string(second) {
		t.Errorf("load then save changed the blob:\n%s\n%s", first, second)
	}
}

func TestSaveAllEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend)

	if err := s.Tasks().SaveAll(ctx, nil); err != nil {
		t.Fatal(err)
	}
	data, ok, _ := backend.Get(ctx, constants.TasksNamespace)
	if !ok || string(data) != "[]" {
		t.Errorf("stored = %q, want []", data)
	}
}

func TestCorruptLoadResilience(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		blob string
	}{
		{name: "not json", blob: "{{{"},
		{name: "object instead of array", blob: `{"id":"x"}`},
		{name: "element missing id", blob: `[{"name":"no id"}]`},
		{name: "bad day", blob: `[{"id":"a","name":"x","completionDates":["yesterday"]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewMemoryBackend()
			_ = backend.Put(ctx, constants.HabitsNamespace, []byte(tt.blob))
			s := New(backend)

			got := s.Habits().LoadAll(ctx)
			if got == nil || len(got) != 0 {
				t.Errorf("LoadAll() = %v, want empty", got)
			}
		})
	}
}

func TestUpsertQuarantinesCorruptBlob(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Put(ctx, constants.HabitsNamespace, []byte("garbage"))
	s := New(backend)

	h := models.NewHabit("Fresh start")
	if err := s.Habits().Upsert(ctx, h); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got := s.Habits().LoadAll(ctx)
	if len(got) != 1 || got[0].ID() != h.ID() {
		t.Errorf("LoadAll() = %v, want only the new habit", ids(got))
	}
	saved, ok, _ := backend.Get(ctx, constants.HabitsNamespace+quarantineSuffix)
	if !ok || string(saved) != "garbage" {
		t.Errorf("quarantined blob = %q, %v; want original bytes", saved, ok)
	}
}

func TestUpsertAbortsOnReadError(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	backend.getErr = errors.New("disk on fire")
	s := New(backend)

	err := s.Habits().Upsert(ctx, models.NewHabit("x"))
	if err == nil {
		t.Fatal("expected Upsert to fail when the backend cannot be read")
	}
	if backend.puts != 0 {
		t.Errorf("puts = %d, want 0", backend.puts)
	}
}

func TestSaveFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	s := New(backend)

	keep := models.NewHabit("keep")
	if err := s.Habits().SaveAll(ctx, []*models.Habit{keep}); err != nil {
		t.Fatal(err)
	}

	backend.putErr = errors.New("read-only filesystem")
	if err := s.Habits().Upsert(ctx, models.NewHabit("lost")); err == nil {
		t.Fatal("expected save error to be returned")
	}

	backend.putErr = nil
	got := s.Habits().LoadAll(ctx)
	if len(got) != 1 || got[0].ID() != keep.ID() {
		t.Errorf("LoadAll() = %v, want prior state", ids(got))
	}
}

func TestRemoveByID(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	s := New(backend)

	a := models.NewTask("a")
	b := models.NewTask("b")
	if err := s.Tasks().SaveAll(ctx, []*models.Task{a, b}); err != nil {
		t.Fatal(err)
	}
	puts := backend.puts

	if err := s.Tasks().RemoveByID(ctx, "does-not-exist"); err != nil {
		t.Fatalf("RemoveByID(absent) error = %v", err)
	}
	if backend.puts != puts {
		t.Error("removing an absent id should not write")
	}

	if err := s.Tasks().RemoveByID(ctx, a.ID()); err != nil {
		t.Fatalf("RemoveByID() error = %v", err)
	}
	got := s.Tasks().LoadAll(ctx)
	if len(got) != 1 || got[0].ID() != b.ID() {
		t.Errorf("LoadAll() = %v, want [b]", ids(got))
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	h := models.NewHabit("find me")
	_ = s.Habits().Upsert(ctx, h)

	if got, ok := s.Habits().Get(ctx, h.ID()); !ok || got.Name != "find me" {
		t.Errorf("Get() = %v, %v", got, ok)
	}
	if _, ok := s.Habits().Get(ctx, "nope"); ok {
		t.Error("Get() should miss unknown ids")
	}
}

func TestNullElementsAreSkipped(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	blob := `[null,{"id":"a","name":"x","createdDate":"2024-01-01T00:00:00Z"}]`
	_ = backend.Put(ctx, constants.HabitsNamespace, []byte(blob))

	got := New(backend).Habits().LoadAll(ctx)
	if len(got) != 1 || got[0].ID() != "a" {
		t.Errorf("LoadAll() = %v, want [a]", ids(got))
	}
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Habits().Upsert(ctx, models.NewHabit(fmt.Sprintf("habit-%d", i))); err != nil {
				t.Errorf("Upsert() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.Habits().LoadAll(ctx)); got != n {
		t.Errorf("LoadAll() returned %d habits, want %d (lost updates)", got, n)
	}
}

func TestCollectionsShareLocksPerNamespace(t *testing.T) {
	s := New(NewMemoryBackend())
	other := NewCollection[*models.Habit](s, constants.HabitsNamespace)

	if s.lockFor(other.Namespace()) != s.lockFor(s.Habits().Namespace()) {
		t.Error("collections over the same namespace must share one lock")
	}
	if s.lockFor(constants.HabitsNamespace) == s.lockFor(constants.TasksNamespace) {
		t.Error("different namespaces should not share a lock")
	}
}

func TestConcurrentUpdatesKeepEveryChange(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	backend.getDelay = 2 * time.Millisecond
	s := New(backend)

	h := models.NewHabit("Read")
	if err := s.Habits().Upsert(ctx, h); err != nil {
		t.Fatal(err)
	}

	today := models.Day("2024-03-20")
	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Habits().Update(ctx, h.ID(), func(h *models.Habit) (*models.Habit, error) {
				return h.MarkCompleted(today.AddDays(-i).Time()), nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	stored, ok := s.Habits().Get(ctx, h.ID())
	if !ok {
		t.Fatal("habit disappeared")
	}
	if got := len(stored.CompletionDays()); got != n {
		t.Errorf("stored log has %d days, want %d (lost updates)", got, n)
	}
}

func TestUpdateWritesNothingOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	s := New(backend)

	h := models.NewHabit("Read")
	if err := s.Habits().Upsert(ctx, h); err != nil {
		t.Fatal(err)
	}
	before := backend.puts

	if _, err := s.Habits().Update(ctx, "missing", func(h *models.Habit) (*models.Habit, error) {
		return h, nil
	}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrItemNotFound", err)
	}

	boom := errors.New("rejected")
	if _, err := s.Habits().Update(ctx, h.ID(), func(h *models.Habit) (*models.Habit, error) {
		h.SetName("changed")
		return h, boom
	}); !errors.Is(err, boom) {
		t.Errorf("Update() error = %v, want %v", err, boom)
	}

	if backend.puts != before {
		t.Errorf("failed updates wrote %d times", backend.puts-before)
	}
	if stored, _ := s.Habits().Get(ctx, h.ID()); stored.Name != "Read" {
		t.Errorf("stored name = %q, want Read", stored.Name)
	}
}

func TestLoadAllReadErrorIsNotADecodeFailure(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	s := New(backend)
	habits := NewCollection[*models.Habit](s, "ReadErrorNS")

	before := testutil.ToFloat64(metrics.DecodeFailures.WithLabelValues("ReadErrorNS"))
	backend.getErr = errors.New("connection refused")
	if got := habits.LoadAll(ctx); len(got) != 0 {
		t.Errorf("LoadAll() = %d items, want 0", len(got))
	}
	if after := testutil.ToFloat64(metrics.DecodeFailures.WithLabelValues("ReadErrorNS")); after != before {
		t.Errorf("decode failures went from %v to %v on a read error", before, after)
	}

	backend.getErr = nil
	if err := backend.Put(ctx, "ReadErrorNS", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	habits.LoadAll(ctx)
	if after := testutil.ToFloat64(metrics.DecodeFailures.WithLabelValues("ReadErrorNS")); after != before+1 {
		t.Errorf("decode failures = %v, want %v", after, before+1)
	}
}
