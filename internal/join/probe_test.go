package join

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
)

func newProbePool(probe ExistenceFn) *ProbePool {
	return NewProbePool(ProbeConfig{
		MaxInFlight:   4,
		RatePerSecond: 10000,
		BatchWait:     time.Millisecond,
	}, probe, logger.NewLogger(nil), testMetrics)
}

func TestHasAll(t *testing.T) {
	pool := newProbePool(func(ctx context.Context, id string) (bool, error) {
		return id == "T-1" || id == "T-3", nil
	})

	got := pool.HasAll(context.Background(), []string{"T-1", "T-2", "T-3", "42"})
	assert.Equal(t, map[string]bool{
		"T-1": true,
		"T-2": false,
		"T-3": true,
		"42":  false,
	}, got)
}

func TestHasAll_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	pool := newProbePool(func(ctx context.Context, id string) (bool, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return true, nil
	})

	keys := make([]string, 32)
	for i := range keys {
		keys[i] = fmt.Sprintf("T-%d", i)
	}
	got := pool.HasAll(context.Background(), keys)
	assert.Len(t, got, 32)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(4), "in-flight probes must respect the fan-out limit")
	assert.Greater(t, peak, int64(1), "probes should actually overlap")
}

func TestHasAll_FailureDoesNotCancelOthers(t *testing.T) {
	pool := newProbePool(func(ctx context.Context, id string) (bool, error) {
		if id == "T-BAD" {
			return false, fmt.Errorf("backend hiccup")
		}
		return true, nil
	})

	got := pool.HasAll(context.Background(), []string{"T-1", "T-BAD", "T-2"})
	assert.True(t, got["T-1"])
	assert.True(t, got["T-2"])
	assert.False(t, got["T-BAD"], "failed probe degrades to absent")
}

func TestAttachLabTestFlags(t *testing.T) {
	// Treatment 42 has no lab test: the flag is false and the caller
	// knows not to offer the view-lab-test action.
	pool := newProbePool(func(ctx context.Context, id string) (bool, error) {
		return id != "42", nil
	})

	rows := []model.ViewRow{
		{ID: "7", Fields: map[string]string{}},
		{ID: "42", Fields: map[string]string{}},
		{ID: "", Fields: map[string]string{}},
	}
	pool.AttachLabTestFlags(context.Background(), rows)

	assert.Equal(t, "true", rows[0].Field("hasLabTest"))
	assert.Equal(t, "false", rows[1].Field("hasLabTest"))
	assert.Equal(t, "false", rows[2].Field("hasLabTest"))
}
