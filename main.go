package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xplorer1/eskalate-news-api/config"
	"github.com/xplorer1/eskalate-news-api/jobs"
	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/middleware"
	"github.com/xplorer1/eskalate-news-api/routes"
	"github.com/xplorer1/eskalate-news-api/services"
	"github.com/xplorer1/eskalate-news-api/tracking"
	"github.com/xplorer1/eskalate-news-api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	log, err := utils.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ttl, err := utils.ParseExpiresIn(cfg.JWTExpiresIn)
	if err != nil {
		utils.Sugar.Fatalf("invalid JWT_EXPIRES_IN: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	ctx := context.Background()
	rdb, err := utils.NewRedis(ctx, cfg)
	if err != nil {
		// the cache and the job lock are optional; run without them
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		rdb = nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := tracking.NewReadLimiter(cfg.ReadWindow, cfg.ReadCleanupInterval)
	limiter.Start()

	readLogger := tracking.NewReadLogger(tracking.GormReadLogStore{DB: db}, tracking.ReadLoggerOptions{
		Workers:       cfg.ReadLogWorkers,
		QueueSize:     cfg.ReadLogQueueSize,
		InsertTimeout: cfg.ReadLogTimeout,
		Metrics:       m,
		Logger:        log,
	})
	readLogger.Start()

	aggOpts := jobs.AggregationOptions{
		BatchSize: cfg.AggregationBatchSize,
		LockTTL:   cfg.AggregationTimeout,
		Logger:    log,
		Metrics:   m,
	}
	if rdb != nil {
		aggOpts.Lock = jobs.RedisLock{Client: rdb}
	}
	aggregation := jobs.NewAggregationJob(db, aggOpts)

	scheduler := jobs.NewScheduler(db, jobs.Config{
		CheckInterval: cfg.SchedulerCheckInterval,
		Timeout:       cfg.AggregationTimeout,
	}, log, m)
	if err := scheduler.Register(ctx, jobs.AggregationJobName, cfg.AggregationCron, cfg.AggregationTimezone,
		aggregation.Execute, jobs.WithTimeout(cfg.AggregationTimeout)); err != nil {
		utils.Sugar.Fatalf("register aggregation job: %v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		utils.Sugar.Fatalf("start scheduler: %v", err)
	}

	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute)
	authLimiter.Start()

	tokens := utils.NewTokenManager(cfg.JWTSecret, ttl)
	cache := utils.NewCache(rdb, time.Minute, log)

	r, err := routes.SetupRouter(routes.Dependencies{
		Config:      cfg,
		DB:          db,
		Logger:      log,
		Tokens:      tokens,
		Auth:        services.NewAuthService(db, utils.NewBcryptHasher(), tokens, log),
		Articles:    services.NewArticleService(db, cache, log),
		Analytics:   services.NewAnalyticsService(db),
		ReadGate:    limiter,
		ReadSink:    readLogger,
		Metrics:     m,
		AuthLimiter: authLimiter,
		Gatherer:    reg,
	})
	if err != nil {
		utils.Sugar.Fatalf("router setup failed: %v", err)
	}

	srv := utils.NewServer(":"+cfg.AppPort, r, log)
	// hooks run in reverse: scheduler first, then the read queue drains, then the limiters stop
	srv.OnShutdown(func(context.Context) error {
		limiter.Stop()
		authLimiter.Stop()
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	})
	srv.OnShutdown(readLogger.Stop)
	srv.OnShutdown(scheduler.Stop)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.Run(ctx); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
