package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-ops/config"
	"github.com/jwalitptl/clinic-ops/internal/fetcher"
	"github.com/jwalitptl/clinic-ops/internal/gateway"
	"github.com/jwalitptl/clinic-ops/internal/handler/health"
	"github.com/jwalitptl/clinic-ops/internal/handler/lookup"
	"github.com/jwalitptl/clinic-ops/internal/handler/record"
	"github.com/jwalitptl/clinic-ops/internal/handler/screen"
	"github.com/jwalitptl/clinic-ops/internal/join"
	"github.com/jwalitptl/clinic-ops/internal/middleware"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/internal/router"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/messaging"
	redisbroker "github.com/jwalitptl/clinic-ops/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("clinicops", "api")

	// Upstream client and snapshot loader.
	client := fetcher.NewClient(fetcher.ClientConfig{
		BaseURL:        cfg.Upstream.BaseURL,
		RequestTimeout: cfg.Upstream.RequestTimeout,
		MaxFailures:    cfg.Upstream.MaxFailures,
		BreakerTimeout: cfg.Upstream.BreakerTimeout,
	}, fetcher.PassthroughTokens(), appLogger, m)
	loader := fetcher.NewLoader(client, cfg.Upstream.CacheTTL, appLogger, m)

	// Engines.
	joinEngine := join.NewEngine(appLogger, m)
	queryEngine := query.NewEngine(m)
	probes := join.NewProbePool(join.ProbeConfig{
		MaxInFlight:   cfg.Probe.MaxInFlight,
		RatePerSecond: cfg.Probe.RatePerSecond,
		BatchWait:     cfg.Probe.BatchWait,
	}, func(ctx context.Context, treatmentID string) (bool, error) {
		return client.Exists(ctx, "lab-tests/treatment", treatmentID)
	}, appLogger, m)

	// Optional redis broker for cross-instance snapshot invalidation.
	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	gw := gateway.New(client, loader, broker, appLogger, m)

	r := router.NewRouter(router.Config{
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		CORSConfig:       middleware.DefaultCORSConfig(),
		MetricsEnabled:   cfg.Monitoring.PrometheusEnabled,
		MetricsPath:      cfg.Monitoring.MetricsPath,
	},
		screen.NewHandler(loader, joinEngine, queryEngine, probes, cfg.PageSize),
		lookup.NewHandler(loader, joinEngine, queryEngine),
		record.NewHandler(gw),
		health.NewHandler(client),
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if broker != nil {
		go invalidationLoop(ctx, broker, loader, appLogger)
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// invalidationLoop drops the local snapshot whenever another instance
// reports a record mutation.
func invalidationLoop(ctx context.Context, broker messaging.Broker, loader *fetcher.Loader, appLogger *logger.Logger) {
	events, err := broker.Subscribe(ctx, messaging.InvalidationChannel)
	if err != nil {
		appLogger.Error(err, "failed to subscribe to invalidation events")
		return
	}
	for payload := range events {
		var event messaging.InvalidationEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			appLogger.Error(err, "malformed invalidation event")
			continue
		}
		appLogger.Debug("snapshot invalidated by peer",
			"collection", event.Collection, "operation", event.Operation)
		loader.Invalidate()
	}
}
