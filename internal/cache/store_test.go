package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/snapshot"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	ds    *dataset.Dataset
	err   error
	block chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.ds, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testDataset() *dataset.Dataset {
	ds := &dataset.Dataset{
		Clients: []dataset.Client{{CustomerID: "c1", Name: "Alice", Country: "Sweden", PartnerID: "P1"}},
	}
	ds.Normalize()
	return ds
}

// newTestStore builds a store around a controllable clock; hydration runs
// against the same clock.
func newTestStore(src *fakeSource, kv snapshot.Store, clock *fakeClock) *Store {
	s := &Store{
		src:   src,
		kv:    kv,
		fresh: 5 * time.Minute,
		stale: 10 * time.Minute,
		now:   clock.now,
	}
	s.hydrate()
	return s
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLoadFreshWindowSingleFetch(t *testing.T) {
	src := &fakeSource{ds: testDataset()}
	s := newTestStore(src, snapshot.NewMemory(), newClock())

	first, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if src.callCount() != 1 {
		t.Errorf("expected 1 fetch within fresh window, got %d", src.callCount())
	}
	if first != second {
		t.Error("both loads should return the same dataset instance")
	}
}

func TestLoadRefetchesAfterFreshWindow(t *testing.T) {
	clock := newClock()
	src := &fakeSource{ds: testDataset()}
	s := newTestStore(src, snapshot.NewMemory(), clock)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	clock.advance(6 * time.Minute)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if src.callCount() != 2 {
		t.Errorf("expected refetch after fresh window, got %d fetches", src.callCount())
	}
}

func TestLoadCoalescesConcurrentFetches(t *testing.T) {
	src := &fakeSource{ds: testDataset(), block: make(chan struct{})}
	s := newTestStore(src, snapshot.NewMemory(), newClock())

	var wg sync.WaitGroup
	results := make([]*dataset.Dataset, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := s.Load(context.Background())
			if err != nil {
				t.Errorf("load %d: %v", i, err)
			}
			results[i] = ds
		}(i)
	}

	// Give the goroutines time to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	if src.callCount() != 1 {
		t.Errorf("concurrent loads should share one fetch, got %d", src.callCount())
	}
	for i, ds := range results {
		if ds != results[0] {
			t.Errorf("load %d got a different dataset instance", i)
		}
	}
}

func TestLoadStaleFallback(t *testing.T) {
	clock := newClock()
	kv := snapshot.NewMemory()
	src := &fakeSource{ds: testDataset()}
	s := newTestStore(src, kv, clock)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	// Age the snapshot past the fresh window but inside the stale
	// tolerance, then break the upstream.
	clock.advance(7 * time.Minute)
	src.err = errors.New("upstream down")

	ds, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("stale fallback should resolve, got %v", err)
	}
	if len(ds.Clients) != 1 || ds.Clients[0].CustomerID != "c1" {
		t.Errorf("fallback dataset mismatch: %+v", ds.Clients)
	}
	if src.callCount() != 2 {
		t.Errorf("expected failed fetch attempt, got %d calls", src.callCount())
	}
}

func TestLoadFailsBeyondStaleTolerance(t *testing.T) {
	clock := newClock()
	kv := snapshot.NewMemory()
	src := &fakeSource{ds: testDataset()}
	s := newTestStore(src, kv, clock)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	clock.advance(11 * time.Minute)
	src.err = errors.New("upstream down")

	if _, err := s.Load(context.Background()); err == nil {
		t.Error("load should fail when the snapshot is beyond stale tolerance")
	}
}

func TestMalformedSnapshotIsColdStart(t *testing.T) {
	clock := newClock()
	kv := snapshot.NewMemory()
	kv.Set(DataKey, "{not json")
	kv.Set(TimeKey, "also not a number")

	src := &fakeSource{err: errors.New("upstream down")}
	s := newTestStore(src, kv, clock)

	if s.GetCached() != nil {
		t.Error("malformed snapshot must not hydrate")
	}
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("load should fail with no usable snapshot and a dead upstream")
	}
}

func TestHydrateFromSnapshot(t *testing.T) {
	clock := newClock()
	kv := snapshot.NewMemory()

	// Seed durable storage through one store, then build a second store
	// over the same storage to simulate a restart.
	seed := newTestStore(&fakeSource{ds: testDataset()}, kv, clock)
	if _, err := seed.Load(context.Background()); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	clock.advance(3 * time.Minute)
	src := &fakeSource{err: errors.New("upstream down")}
	s := newTestStore(src, kv, clock)

	cached := s.GetCached()
	if cached == nil {
		t.Fatal("store should hydrate from the durable snapshot")
	}
	if len(cached.Clients) != 1 || cached.Clients[0].Name != "Alice" {
		t.Errorf("hydrated dataset mismatch: %+v", cached.Clients)
	}
	if src.callCount() != 0 {
		t.Errorf("hydration must not fetch, got %d calls", src.callCount())
	}

	// Within the fresh window relative to the stored timestamp, a load
	// serves the hydrated copy without touching the upstream.
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("load after hydrate: %v", err)
	}
	if src.callCount() != 0 {
		t.Errorf("fresh hydrated load must not fetch, got %d calls", src.callCount())
	}
}

func TestClear(t *testing.T) {
	clock := newClock()
	kv := snapshot.NewMemory()
	src := &fakeSource{ds: testDataset()}
	s := newTestStore(src, kv, clock)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.Clear()

	if s.GetCached() != nil {
		t.Error("clear should drop the in-memory dataset")
	}
	if _, ok, _ := kv.Get(DataKey); ok {
		t.Error("clear should remove the durable snapshot")
	}
	if _, ok, _ := kv.Get(TimeKey); ok {
		t.Error("clear should remove the snapshot timestamp")
	}
	if info := s.Info(); info.Cached || !info.LastFetch.IsZero() {
		t.Errorf("info after clear: %+v", info)
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(&fakeSource{ds: testDataset()}, snapshot.NewMemory(), 0, 0)
	if s.fresh != DefaultFreshWindow {
		t.Errorf("fresh default: got %v", s.fresh)
	}
	if s.stale != 2*DefaultFreshWindow {
		t.Errorf("stale default: got %v", s.stale)
	}
}
