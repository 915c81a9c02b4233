// Command arithmitra runs the ArithMitra HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arithmitra/pkg/account"
	"arithmitra/pkg/api"
	"arithmitra/pkg/cache"
	"arithmitra/pkg/cache/bloom"
	"arithmitra/pkg/cache/memory"
	"arithmitra/pkg/cache/redis"
	"arithmitra/pkg/chain"
	"arithmitra/pkg/config"
	"arithmitra/pkg/events"
	"arithmitra/pkg/gateway"
	"arithmitra/pkg/gateway/gemini"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"
	memorycollector "arithmitra/pkg/metrics/memory"
	promcollector "arithmitra/pkg/metrics/prometheus"
	"arithmitra/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("ARITHMITRA_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "arithmitra:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := promcollector.NewPrometheusCollector(cfg.Metrics.Namespace)
	registry.MustRegister(prom)
	snapshot := memorycollector.NewMemoryCollector()
	collector := metrics.Tee{prom, snapshot}

	layers := []cache.Layer{memory.NewMemoryCache(cfg.Cache.Memory)}
	var accountStorage account.Storage = account.NewMemoryStorage()

	var redisLayer *redis.RedisCache
	if cfg.Cache.Redis.Enabled {
		redisLayer, err = redis.NewRedisCache(cfg.Cache.Redis)
		if err != nil {
			return err
		}

		accountStorage = account.NewLayerStorage(redisLayer, cfg.Cache.Redis.MaxTTL)

		if cfg.Cache.Bloom.Enabled {
			filtered := bloom.NewBloomLayer(redisLayer, cfg.Cache.Bloom.ExpectedItems, cfg.Cache.Bloom.FalsePositiveRate)
			keys, err := redisLayer.Keys(ctx, "assess:*")
			if err != nil {
				logger.Warn("bloom filter not seeded", zap.Error(err))
			} else {
				filtered.Seed(keys)
				logger.Info("bloom filter seeded", zap.Int("keys", len(keys)))
			}
			layers = append(layers, filtered)
		} else {
			layers = append(layers, redisLayer)
		}
	}

	chainConfig := cfg.Cache.Chain
	chainConfig.Metrics = collector
	chainConfig.TTLStrategy = chain.DecayingTTLStrategy{DecayFactor: cfg.Cache.DecayFactor}
	results, err := chain.NewWithConfig(chainConfig, layers...)
	if err != nil {
		if redisLayer != nil {
			redisLayer.Close()
		}
		return err
	}
	// Closes every layer, Redis included.
	defer results.Close()

	var model gateway.Model = gateway.OfflineModel{}
	if cfg.Gemini.APIKey != "" {
		client, err := gemini.New(ctx, cfg.Gemini)
		if err != nil {
			return err
		}
		model = client
		logger.Info("hosted model enabled", zap.String("model", cfg.Gemini.Model))
	} else {
		logger.Warn("no API key configured, assessments are unavailable")
	}
	assessor := gateway.New(model, cfg.Gateway, gateway.WithCache(results), gateway.WithMetrics(collector))

	var sink events.Sink = events.NoOpSink{}
	if cfg.Events.Enabled {
		natsSink, err := events.Connect(cfg.Events.Config)
		if err != nil {
			return err
		}
		defer natsSink.Close()
		sink = natsSink
	}

	sessions := session.NewRegistry(cfg.Session, assessor,
		session.WithSink(sink),
		session.WithMetrics(collector),
		session.WithLogger(logger.Named("session")),
	)
	defer sessions.Close()

	accounts := account.NewStore(accountStorage, account.WithLogger(logger.Named("account")))

	server := api.NewServer(api.Deps{
		Sessions:   sessions,
		Accounts:   accounts,
		Assessor:   assessor,
		Cache:      results,
		Snapshot:   snapshot,
		Gatherer:   registry,
		Registerer: registry,
		Logger:     logger.Named("api"),
	}, cfg.Server)

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := results.Flush(time.Second); err != nil {
		logger.Warn("cache flush incomplete", zap.Error(err))
	}
	return errors.Join(errs...)
}
