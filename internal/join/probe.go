package join

import (
	"context"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

// ExistenceFn answers one external fact: does a dependent record
// exist for this key? The lab-test lookup endpoint is keyed by
// treatment id with no bulk variant, so this is always a single GET.
type ExistenceFn func(ctx context.Context, id string) (bool, error)

type ProbeConfig struct {
	MaxInFlight   int
	RatePerSecond float64
	BatchWait     time.Duration
}

// ProbePool batches independent per-row existence probes behind a
// dataloader with a bounded-concurrency fan-out. List-load latency
// tracks the slowest single probe, not the sum, while the semaphore
// and rate limiter keep the backend from being overwhelmed.
type ProbePool struct {
	loader  *dataloader.Loader[string, bool]
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewProbePool(cfg ProbeConfig, probe ExistenceFn, log *logger.Logger, m *metrics.Metrics) *ProbePool {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = 5 * time.Millisecond
	}

	pool := &ProbePool{logger: log, metrics: m}
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.MaxInFlight)
	sem := make(chan struct{}, cfg.MaxInFlight)

	batchFn := func(ctx context.Context, keys []string) []*dataloader.Result[bool] {
		results := make([]*dataloader.Result[bool], len(keys))

		var wg sync.WaitGroup
		for i, key := range keys {
			wg.Add(1)
			go func(i int, key string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				if err := limiter.Wait(ctx); err != nil {
					results[i] = &dataloader.Result[bool]{Data: false}
					return
				}

				start := time.Now()
				exists, err := probe(ctx, key)
				m.ProbeLatency.Observe(time.Since(start).Seconds())
				if err != nil {
					// One failed probe never cancels the rest; the
					// row simply reports no dependent record.
					log.Warn("existence probe failed", "key", key, "error", err.Error())
					m.ProbesTotal.WithLabelValues("error").Inc()
					results[i] = &dataloader.Result[bool]{Data: false}
					return
				}
				m.ProbesTotal.WithLabelValues("ok").Inc()
				results[i] = &dataloader.Result[bool]{Data: exists}
			}(i, key)
		}
		wg.Wait()
		return results
	}

	// Probes must reflect server truth on every screen load, so the
	// dataloader's request cache is disabled.
	pool.loader = dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithCache[string, bool](&dataloader.NoCache[string, bool]{}),
		dataloader.WithWait[string, bool](cfg.BatchWait),
		dataloader.WithBatchCapacity[string, bool](256),
	)
	return pool
}

// HasAll resolves every key's existence in one batched fan-out.
func (p *ProbePool) HasAll(ctx context.Context, keys []string) map[string]bool {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out
	}

	thunks := make(map[string]func() (bool, error), len(keys))
	for _, key := range keys {
		if _, ok := thunks[key]; ok {
			continue
		}
		thunks[key] = p.loader.Load(ctx, key)
	}
	for key, thunk := range thunks {
		exists, err := thunk()
		if err != nil {
			exists = false
		}
		out[key] = exists
	}
	return out
}

// AttachLabTestFlags probes whether each treatment row has an
// associated lab test and writes the flag onto the row. Rows without
// a resolvable id report false, the "view lab test" action is simply
// not offered for them.
func (p *ProbePool) AttachLabTestFlags(ctx context.Context, rows []model.ViewRow) {
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID != "" {
			keys = append(keys, row.ID)
		}
	}
	exists := p.HasAll(ctx, keys)
	for i := range rows {
		if rows[i].ID != "" && exists[rows[i].ID] {
			rows[i].Fields["hasLabTest"] = "true"
		} else {
			rows[i].Fields["hasLabTest"] = "false"
		}
	}
}
