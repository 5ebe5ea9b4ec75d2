package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/harvest-service/internal/acquisition"
	"github.com/user/harvest-service/internal/adapter/chromedp_crawler"
	"github.com/user/harvest-service/internal/adapter/httpfetch"
	"github.com/user/harvest-service/internal/adapter/memory"
	"github.com/user/harvest-service/internal/adapter/postgres"
	redis_adapter "github.com/user/harvest-service/internal/adapter/redis"
	"github.com/user/harvest-service/internal/delivery/http/handler"
	"github.com/user/harvest-service/internal/delivery/http/router"
	"github.com/user/harvest-service/internal/proxy"
	"github.com/user/harvest-service/internal/repository"
	"github.com/user/harvest-service/internal/scheduler"
	"github.com/user/harvest-service/internal/source"
	"github.com/user/harvest-service/internal/usecase"
	"github.com/user/harvest-service/pkg/config"
	"github.com/user/harvest-service/pkg/logger"
	"github.com/user/harvest-service/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

type stores struct {
	schedules repository.ScheduleRepository
	keywords  repository.KeywordRepository
	records   repository.RecordRepository
	audit     repository.RunReportRepository
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	// --- Logger ---
	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer lg.Sync()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx := context.Background()
	checks := map[string]handler.HealthCheck{}

	// --- Sources ---
	sources, err := source.LoadFile(cfg.SourcesFile)
	if err != nil {
		lg.Fatal("could not load sources", zap.String("file", cfg.SourcesFile), zap.Error(err))
	}
	lg.Info("Sources loaded", zap.Int("count", len(sources.All())))

	// --- Storage ---
	var st stores
	switch cfg.StorageDriver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			lg.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, lg); err != nil {
			lg.Fatal("failed to migrate database", zap.Error(err))
		}
		st = stores{
			schedules: postgres.NewScheduleRepo(db),
			keywords:  postgres.NewKeywordRepo(db),
			records:   postgres.NewRecordRepo(db),
			audit:     postgres.NewRunReportRepo(db),
		}
		checks["postgres"] = db.Ping
		lg.Info("PostgreSQL connection pool established")
	case "memory":
		keywords := memory.NewKeywordRepo()
		st = stores{
			schedules: memory.NewScheduleRepo(),
			keywords:  keywords,
			records:   memory.NewRecordRepo(keywords),
			audit:     memory.NewRunReportRepo(cfg.RunHistorySize),
		}
		lg.Warn("Using in-memory storage, data is lost on restart")
	}

	var (
		seen    repository.SeenCache
		history repository.RunHistory
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Fatal("unable to connect to redis", zap.Error(err))
		}
		seen = redis_adapter.NewSeenRepo(rdb)
		history = redis_adapter.NewRunHistory(rdb, cfg.RunHistorySize)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		lg.Info("Redis connection established")
	} else {
		seen = memory.NewSeenCache()
		history = memory.NewRunReportRepo(cfg.RunHistorySize)
	}

	// --- Transports and engines ---
	proxies := proxy.NewManager(cfg.Proxies, nil)
	fetcher := httpfetch.New(cfg.FetchTimeout, proxies, lg.Named("httpfetch"))
	browser := chromedp_crawler.NewBrowser(cfg.ChromePath, cfg.PageLoadTimeout, proxies, lg.Named("chromedp"))
	if err := browser.Available(); err != nil {
		lg.Warn("Headless engine unavailable, headless runs will abort", zap.Error(err))
	}

	// --- Use cases ---
	ingester := usecase.NewIngester(st.records, seen, cfg.SeenTTL(), m, lg.Named("ingest"))
	runner := usecase.NewRunner(usecase.RunnerConfig{
		Sources:            sources,
		Lightweight:        acquisition.NewLightweight(fetcher, lg.Named("lightweight")),
		Headless:           acquisition.NewHeadless(browser, lg.Named("headless")),
		LightweightWorkers: int64(cfg.LightweightWorkers),
		HeadlessWorkers:    int64(cfg.HeadlessWorkers),
		Keywords:           st.keywords,
		Ingester:           ingester,
		Audit:              st.audit,
		History:            history,
		Metrics:            m,
		Logger:             lg.Named("runner"),
	})

	sched := scheduler.New(st.schedules, runner, cfg.Location(), m, lg.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		lg.Fatal("failed to start scheduler", zap.Error(err))
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(sched, runner, checks, lg.Named("http"))
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.New(apiHandler, m, reg, lg),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("could not start server", zap.Error(err))
		}
	}()
	lg.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		lg.Error("scheduler did not drain in time", zap.Error(err))
	}
	lg.Info("server exiting")
}
