// Package cache implements the two-tier dataset cache: a fresh in-memory
// value in front of a durable compressed snapshot, with request coalescing
// and a stale-but-usable fallback when the upstream is down.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/snapshot"
	"github.com/partnerpulse/engine/internal/source"
)

const (
	// DataKey is the durable storage key for the compressed snapshot.
	DataKey = "partnerReportData"
	// TimeKey is the durable storage key for the snapshot timestamp
	// (epoch milliseconds, stringified).
	TimeKey = "partnerReportDataTime"

	// DefaultFreshWindow is how long a fetched dataset is served without
	// revalidation.
	DefaultFreshWindow = 5 * time.Minute
)

// flight tracks one in-progress upstream fetch so concurrent loads share a
// single request.
type flight struct {
	done chan struct{}
	ds   *dataset.Dataset
	err  error
}

// Store is the two-tier dataset cache. All state is instance-local; separate
// stores never interfere.
type Store struct {
	src   source.Source
	kv    snapshot.Store
	fresh time.Duration
	stale time.Duration
	now   func() time.Time

	mu        sync.Mutex
	cached    *dataset.Dataset
	lastFetch time.Time
	inflight  *flight
}

// New creates a store and eagerly hydrates the in-memory tier from the
// durable snapshot when one exists within the stale tolerance, so a restart
// inside the tolerance window can serve before the first fetch completes.
// A zero fresh window defaults to DefaultFreshWindow; a zero stale tolerance
// defaults to twice the fresh window.
func New(src source.Source, kv snapshot.Store, fresh, stale time.Duration) *Store {
	if fresh <= 0 {
		fresh = DefaultFreshWindow
	}
	if stale <= 0 {
		stale = 2 * fresh
	}
	s := &Store{
		src:   src,
		kv:    kv,
		fresh: fresh,
		stale: stale,
		now:   time.Now,
	}
	s.hydrate()
	return s
}

// hydrate loads the durable snapshot into memory if it is within the stale
// tolerance. Any failure degrades to a cold start.
func (s *Store) hydrate() {
	ds, storedAt, ok := s.readSnapshot()
	if !ok {
		return
	}
	age := s.now().Sub(storedAt)
	if age > s.stale {
		return
	}
	s.cached = ds
	s.lastFetch = storedAt
	slog.Info("cache_hydrated", "age", age, "clients", len(ds.Clients))
}

// Load returns the dataset, fetching from upstream only when the in-memory
// value is missing or past the fresh window. Concurrent callers during a
// fetch share the same result. On fetch failure a durable snapshot within
// the stale tolerance is served instead.
func (s *Store) Load(ctx context.Context) (*dataset.Dataset, error) {
	s.mu.Lock()
	now := s.now()

	if s.cached != nil && now.Sub(s.lastFetch) < s.fresh {
		ds := s.cached
		s.mu.Unlock()
		return ds, nil
	}

	if s.inflight != nil {
		f := s.inflight
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.ds, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	s.inflight = f
	s.mu.Unlock()

	ds, fetchedAt, err := s.fetch(ctx, now)

	s.mu.Lock()
	if err == nil {
		s.cached = ds
		s.lastFetch = fetchedAt
	}
	s.inflight = nil
	s.mu.Unlock()

	f.ds, f.err = ds, err
	close(f.done)
	return ds, err
}

// fetch performs the upstream request, persisting a compressed snapshot on
// success and falling back to a tolerably stale snapshot on failure. The
// returned time is the moment the returned data was originally fetched.
func (s *Store) fetch(ctx context.Context, now time.Time) (*dataset.Dataset, time.Time, error) {
	ds, err := s.src.Fetch(ctx)
	if err == nil {
		s.persist(ds, now)
		return ds, now, nil
	}

	stale, storedAt, ok := s.readSnapshot()
	if ok && now.Sub(storedAt) <= s.stale {
		slog.Warn("serving_stale_snapshot",
			"age", now.Sub(storedAt),
			"error", err,
		)
		return stale, storedAt, nil
	}

	return nil, time.Time{}, fmt.Errorf("dataset fetch failed: %w", err)
}

// persist writes the compressed snapshot and its timestamp. Storage failures
// are logged, not fatal: the in-memory tier still works.
func (s *Store) persist(ds *dataset.Dataset, now time.Time) {
	encoded, err := json.Marshal(dataset.Compress(ds))
	if err != nil {
		slog.Warn("snapshot_encode_failed", "error", err)
		return
	}
	if err := s.kv.Set(DataKey, string(encoded)); err != nil {
		slog.Warn("snapshot_write_failed", "error", err)
		return
	}
	if err := s.kv.Set(TimeKey, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		slog.Warn("snapshot_write_failed", "error", err)
	}
}

// readSnapshot decodes the durable snapshot. A missing or malformed snapshot
// reports ok=false and behaves like a cold start.
func (s *Store) readSnapshot() (*dataset.Dataset, time.Time, bool) {
	raw, ok, err := s.kv.Get(DataKey)
	if err != nil || !ok {
		if err != nil {
			slog.Warn("snapshot_read_failed", "error", err)
		}
		return nil, time.Time{}, false
	}
	rawTime, ok, err := s.kv.Get(TimeKey)
	if err != nil || !ok {
		if err != nil {
			slog.Warn("snapshot_read_failed", "error", err)
		}
		return nil, time.Time{}, false
	}

	millis, err := strconv.ParseInt(rawTime, 10, 64)
	if err != nil {
		slog.Warn("snapshot_timestamp_malformed", "value", rawTime)
		return nil, time.Time{}, false
	}

	var compact dataset.Compact
	if err := json.Unmarshal([]byte(raw), &compact); err != nil {
		slog.Warn("snapshot_malformed", "error", err)
		return nil, time.Time{}, false
	}

	return dataset.Decompress(&compact), time.UnixMilli(millis), true
}

// GetCached returns the in-memory dataset without any fetch or expiry check.
func (s *Store) GetCached() *dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Clear drops both tiers and resets the timestamp to the zero time.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cached = nil
	s.lastFetch = time.Time{}
	s.mu.Unlock()

	if err := s.kv.Remove(DataKey); err != nil {
		slog.Warn("snapshot_remove_failed", "error", err)
	}
	if err := s.kv.Remove(TimeKey); err != nil {
		slog.Warn("snapshot_remove_failed", "error", err)
	}
}

// Info describes the in-memory tier for diagnostics.
type Info struct {
	Cached    bool      `json:"cached"`
	LastFetch time.Time `json:"lastFetch"`
	Clients   int       `json:"clients"`
}

// Info returns the current in-memory cache state.
func (s *Store) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{Cached: s.cached != nil, LastFetch: s.lastFetch}
	if s.cached != nil {
		info.Clients = len(s.cached.Clients)
	}
	return info
}
