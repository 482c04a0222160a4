// Package report is the data access facade: the single entry point UI-facing
// consumers use to load the dataset and obtain computed metrics. It wires
// the cache store, indexer, metrics engine and memoizer together.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/axiomhq/hyperloglog"

	"github.com/partnerpulse/engine/internal/cache"
	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/index"
	"github.com/partnerpulse/engine/internal/memo"
	"github.com/partnerpulse/engine/internal/metrics"
)

// Service orchestrates cache, indexing and memoized metric computation. All
// state is instance-local; create one per dataset resource.
type Service struct {
	store *cache.Store
	memo  *memo.Memoizer
	now   func() time.Time

	mu      sync.Mutex
	indexed *index.Indexed
	gen     uint64
	seen    *hyperloglog.Sketch
}

// New creates a facade over the given cache store and memoizer.
func New(store *cache.Store, m *memo.Memoizer) *Service {
	return &Service{
		store: store,
		memo:  m,
		now:   time.Now,
		seen:  hyperloglog.New16(),
	}
}

// Load returns the dataset via the cache store. Callers must treat the
// result as read-only; it is shared across callers.
func (s *Service) Load(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.track(ds)
	return ds, nil
}

// track ensures the indexed wrapper follows the current dataset instance.
// When the cache hands back a new instance the old indexes and every
// memoized metric are invalidated together, so stale aggregates never
// outlive a refresh.
func (s *Service) track(ds *dataset.Dataset) (*index.Indexed, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexed == nil || s.indexed.Dataset() != ds {
		s.indexed = index.Wrap(ds)
		s.gen++
		s.memo.Clear()
		for i := range ds.Clients {
			s.seen.Insert([]byte(ds.Clients[i].CustomerID))
		}
	}
	return s.indexed, s.gen
}

// indexedFor loads the dataset and returns its index wrapper plus the
// generation used to scope memo keys.
func (s *Service) indexedFor(ctx context.Context) (*index.Indexed, uint64, error) {
	ds, err := s.store.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	ix, gen := s.track(ds)
	return ix, gen, nil
}

// Metrics computes the partner aggregate set, memoized per dataset
// generation and partner filter.
func (s *Service) Metrics(ctx context.Context, partnerID string) (metrics.Partner, error) {
	ix, gen, err := s.indexedFor(ctx)
	if err != nil {
		return metrics.Partner{}, err
	}
	key := memo.Key("partner-metrics", gen, partnerID)
	return memo.Call(s.memo, key, func() metrics.Partner {
		return metrics.PartnerMetrics(ix, partnerID, s.now())
	}), nil
}

// CountryMetrics computes the per-country breakdown, memoized.
func (s *Service) CountryMetrics(ctx context.Context, partnerID string) (map[string]metrics.CountryStats, error) {
	ix, gen, err := s.indexedFor(ctx)
	if err != nil {
		return nil, err
	}
	key := memo.Key("country-metrics", gen, partnerID)
	return memo.Call(s.memo, key, func() map[string]metrics.CountryStats {
		return metrics.CountryMetrics(ix, partnerID)
	}), nil
}

// TierDistribution computes client counts per tier, memoized.
func (s *Service) TierDistribution(ctx context.Context, partnerID string) (map[string]int, error) {
	ix, gen, err := s.indexedFor(ctx)
	if err != nil {
		return nil, err
	}
	key := memo.Key("tier-distribution", gen, partnerID)
	return memo.Call(s.memo, key, func() map[string]int {
		return metrics.TierDistribution(ix, partnerID)
	}), nil
}

// TierProgress computes reward-tier progress for the partner filter,
// memoized.
func (s *Service) TierProgress(ctx context.Context, partnerID string) ([]metrics.TierProgress, error) {
	ix, gen, err := s.indexedFor(ctx)
	if err != nil {
		return nil, err
	}
	key := memo.Key("tier-progress", gen, partnerID)
	return memo.Call(s.memo, key, func() []metrics.TierProgress {
		return metrics.TierProgressFor(ix, partnerID, s.now())
	}), nil
}

// Summary computes the dataset-wide totals, memoized.
func (s *Service) Summary(ctx context.Context) (metrics.Summary, error) {
	ix, gen, err := s.indexedFor(ctx)
	if err != nil {
		return metrics.Summary{}, err
	}
	key := memo.Key("summary", gen)
	return memo.Call(s.memo, key, func() metrics.Summary {
		return metrics.DatasetSummary(ix)
	}), nil
}

// ClearCache drops the dataset cache and all memoized metrics together. A
// refresh must invalidate computed aggregates or stale numbers would survive
// new data.
func (s *Service) ClearCache() {
	s.store.Clear()
	s.memo.Clear()

	s.mu.Lock()
	s.indexed = nil
	s.mu.Unlock()
}

// CacheStats reports diagnostics for the dataset cache, the memoizer, and
// the approximate number of distinct clients seen across refreshes.
type CacheStats struct {
	Dataset     cache.Info `json:"dataset"`
	Memo        memo.Stats `json:"memo"`
	SeenClients uint64     `json:"seenClients"`
}

// CacheStats returns current cache diagnostics.
func (s *Service) CacheStats() CacheStats {
	s.mu.Lock()
	seen := s.seen.Estimate()
	s.mu.Unlock()

	return CacheStats{
		Dataset:     s.store.Info(),
		Memo:        s.memo.Stats(),
		SeenClients: seen,
	}
}
