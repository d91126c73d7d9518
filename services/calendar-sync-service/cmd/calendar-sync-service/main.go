package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotengine/libs/config"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/libs/runtime"
	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/google"
	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/jobs"
	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/outbox"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "calendar-sync-service")
	port, err := config.Port("PORT", "8091")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	poolOpts, err := db.PoolOptionsFromEnv()
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, poolOpts)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository()
	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	workerCfg, err := loadWorkerConfig()
	if err != nil {
		panic(err)
	}
	if credentials := config.String("GOOGLE_CREDENTIALS_FILE", ""); credentials != "" {
		oauthCfg, err := google.LoadConfig(credentials)
		if err != nil {
			logger.Error("google credentials invalid", "err", err)
			panic(err)
		}
		client := google.New(oauthCfg, google.Options{Endpoint: config.String("GOOGLE_CALENDAR_ENDPOINT", "")})
		worker := jobs.NewWorker(pool, jobs.NewRepository(), outboxRepo, client, logger, workerCfg)
		go worker.Run(ctx)
	} else {
		logger.Warn("calendar sync disabled (no google credentials configured)")
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	handler := httpx.Chain(mux, httpx.WithRequestID, httpx.WithAccessLog(logger))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "calendar-sync"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("http server stopped")
}

func loadWorkerConfig() (jobs.WorkerConfig, error) {
	var cfg jobs.WorkerConfig
	var err error
	if cfg.Interval, err = config.Duration("SYNC_INTERVAL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.BatchSize, err = config.Int("SYNC_BATCH_SIZE", 20); err != nil {
		return cfg, err
	}
	if cfg.HorizonDays, err = config.Int("SYNC_HORIZON_DAYS", 60); err != nil {
		return cfg, err
	}
	if cfg.Backoff, err = config.Duration("SYNC_BACKOFF", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.MaxAttempts, err = config.Int("SYNC_MAX_ATTEMPTS", 5); err != nil {
		return cfg, err
	}
	if cfg.RefreshEvery, err = config.Duration("SYNC_REFRESH_EVERY", 15*time.Minute); err != nil {
		return cfg, err
	}
	return cfg, nil
}
