package fetcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/resolver"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

const snapshotCacheKey = "snapshot"

// Snapshot is one complete, internally consistent generation of all
// source collections. A partially loaded fan-out is never published:
// LoadSnapshot returns only after every collection settled.
type Snapshot struct {
	Generation  string
	LoadedAt    time.Time
	Collections map[string][]model.Raw
	// Failed maps degraded collections to the failure message. The
	// screen stays usable with those collections empty.
	Failed map[string]string
}

// Warnings renders the degraded collections for the response payload,
// sorted for stable output.
func (s *Snapshot) Warnings() []string {
	if len(s.Failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Failed))
	for collection, msg := range s.Failed {
		out = append(out, fmt.Sprintf("%s unavailable: %s", collection, msg))
	}
	sort.Strings(out)
	return out
}

// Records returns one collection, empty when degraded or unknown.
func (s *Snapshot) Records(entity string) []model.Raw {
	return s.Collections[entity]
}

// Loader fans out the per-collection fetches and assembles snapshots.
type Loader struct {
	client  *Client
	screens map[string]model.EntityConfig
	cache   *gocache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewLoader(client *Client, cacheTTL time.Duration, log *logger.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		client:  client,
		screens: model.Screens(),
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
		logger:  log,
		metrics: m,
	}
}

// LoadSnapshot loads every collection concurrently and waits for the
// full fan-out to settle. One failed collection degrades to an empty
// set with a warning; it does not abort the snapshot.
func (l *Loader) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	if cached, ok := l.cache.Get(snapshotCacheKey); ok {
		l.metrics.CacheHits.Inc()
		return cached.(*Snapshot), nil
	}
	l.metrics.CacheMisses.Inc()

	type result struct {
		entity  string
		records []model.Raw
		err     error
	}

	collections := model.Collections()
	results := make(chan result, len(collections))

	var wg sync.WaitGroup
	for _, entity := range collections {
		wg.Add(1)
		go func(entity string) {
			defer wg.Done()
			start := time.Now()
			env, err := l.client.List(ctx, l.screens[entity].Collection)
			l.metrics.FetchLatency.WithLabelValues(entity).Observe(time.Since(start).Seconds())
			if err != nil {
				l.metrics.FetchFailures.WithLabelValues(entity).Inc()
				results <- result{entity: entity, err: err}
				return
			}
			results <- result{entity: entity, records: env.Data}
		}(entity)
	}
	wg.Wait()
	close(results)

	snap := &Snapshot{
		Generation:  uuid.New().String(),
		LoadedAt:    time.Now(),
		Collections: make(map[string][]model.Raw, len(collections)+1),
		Failed:      make(map[string]string),
	}

	var authErr error
	for res := range results {
		if res.err != nil {
			// An auth failure is systemic, not a partial-collection
			// degradation; surface it as the load error.
			if isAuthError(res.err) {
				authErr = res.err
			}
			l.logger.Error(res.err, "collection fetch failed", "collection", res.entity)
			l.metrics.SnapshotWarnings.Inc()
			snap.Collections[res.entity] = []model.Raw{}
			snap.Failed[res.entity] = res.err.Error()
			continue
		}
		snap.Collections[res.entity] = res.records
	}
	if authErr != nil {
		return nil, authErr
	}

	// The upstream has no customer endpoint; customers are derived
	// from the customer fields embedded in appointment records.
	snap.Collections[model.EntityCustomer] = DeriveCustomers(snap.Collections[model.EntityAppointment])

	l.metrics.SnapshotReloads.Inc()
	l.cache.Set(snapshotCacheKey, snap, gocache.DefaultExpiration)
	return snap, nil
}

// Invalidate drops the cached snapshot. Called after every mutation:
// the next load reflects server truth instead of patching caches.
func (l *Loader) Invalidate() {
	l.cache.Delete(snapshotCacheKey)
}

// DeriveCustomers extracts the distinct customers referenced by a set
// of appointment records, preserving first-seen order. Appointments
// carry the customer either nested or as flat customer* fields.
func DeriveCustomers(appointments []model.Raw) []model.Raw {
	seen := make(map[string]bool, len(appointments))
	customers := make([]model.Raw, 0, len(appointments))

	for _, apt := range appointments {
		id, err := resolver.ForeignKey(apt, model.EntityCustomer)
		if err != nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		customer := model.Raw{"id": id}
		if nested, ok := apt[model.EntityCustomer].(map[string]any); ok {
			for k, v := range nested {
				customer[k] = v
			}
			customer["id"] = id
		} else {
			if v := apt.Str("customerName"); v != "" {
				customer["name"] = v
			}
			if v := apt.Str("customerEmail"); v != "" {
				customer["email"] = v
			}
			if v := apt.Str("customerPhone"); v != "" {
				customer["phone"] = v
			}
		}
		customers = append(customers, customer)
	}
	return customers
}

func isAuthError(err error) bool {
	return errors.IsCode(err, errors.ErrUnauthorized)
}
