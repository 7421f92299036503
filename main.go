package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/activities"
	"github.com/kestrellabs/deepresearch/internal/artifacts"
	"github.com/kestrellabs/deepresearch/internal/config"
	"github.com/kestrellabs/deepresearch/internal/health"
	"github.com/kestrellabs/deepresearch/internal/providers"
	"github.com/kestrellabs/deepresearch/internal/session"
	"github.com/kestrellabs/deepresearch/internal/store"
	"github.com/kestrellabs/deepresearch/internal/workflows"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfgStore := config.NewStore(cfg)

	if watcher, err := config.NewWatcher(config.Path(), cfgStore, logger); err != nil {
		logger.Warn("config watcher unavailable, hot reload disabled", zap.Error(err))
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	// Metrics and health endpoints share one listener. Probes register
	// below as dependencies come up.
	healthMgr := health.NewManager(logger)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		health.NewHandler(healthMgr, logger).RegisterRoutes(mux)
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	// Providers.
	llm := providers.NewOpenRouterClient(providers.OpenRouterConfig{
		BaseURL:           cfg.Providers.OpenRouter.BaseURL,
		APIKey:            os.Getenv("OPENROUTER_API_KEY"),
		Timeout:           cfg.OpenRouterTimeout(),
		RequestsPerSecond: cfg.Providers.OpenRouter.RequestsPerSecond,
	}, logger)

	var search providers.SearchProvider = providers.NewPerplexityClient(providers.PerplexityConfig{
		BaseURL:           cfg.Providers.Perplexity.BaseURL,
		APIKey:            os.Getenv("PERPLEXITY_API_KEY"),
		Model:             cfg.Models.Search,
		Timeout:           cfg.PerplexityTimeout(),
		RequestsPerSecond: cfg.Providers.Perplexity.RequestsPerSecond,
	}, logger)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Warn("redis unreachable, search cache disabled", zap.Error(err))
		} else {
			cancel()
			search = providers.NewCachedSearch(search, rdb, cfg.CacheTTL(), logger)
			healthMgr.Register("redis", false, func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			})
			logger.Info("search cache enabled", zap.Duration("ttl", cfg.CacheTTL()))
		}
	}

	// Optional persistence.
	var st *store.Store
	if cfg.Postgres.Host != "" {
		st, err = store.Open(store.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = st.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		healthMgr.Register("postgres", false, st.Ping)
		logger.Info("session store ready", zap.String("host", cfg.Postgres.Host))
	}

	sessions := session.NewManager(logger)
	art := artifacts.NewWriter(cfg.Artifacts.Dir, logger)
	acts := activities.NewActivities(llm, search, sessions, cfgStore, st, art, logger)

	hostPort := os.Getenv("TEMPORAL_HOST")
	if hostPort == "" {
		hostPort = client.DefaultHostPort
	}
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace(),
	})
	if err != nil {
		return fmt.Errorf("dial temporal: %w", err)
	}
	defer c.Close()
	healthMgr.Register("temporal", true, func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	})

	w := worker.New(c, workflows.TaskQueue, worker.Options{
		// The citation registry is per-process; one worker owns the
		// whole session, so keep activity concurrency generous.
		MaxConcurrentActivityExecutionSize: 50,
	})
	w.RegisterWorkflow(workflows.ResearchWorkflow)
	w.RegisterActivity(acts)

	logger.Info("research worker starting",
		zap.String("task_queue", workflows.TaskQueue),
		zap.String("temporal", hostPort),
	)
	return w.Run(worker.InterruptCh())
}

func namespace() string {
	if ns := os.Getenv("TEMPORAL_NAMESPACE"); ns != "" {
		return ns
	}
	return "default"
}
