package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/config"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/libs/runtime"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage/sqlite"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var store engine.Store
	var checks []runtime.ReadyCheck
	switch cfg.StoreDriver {
	case "sqlite":
		local, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			logger.Error("sqlite open failed", "err", err)
			os.Exit(1)
		}
		defer local.Close()
		store = local
		checks = append(checks, runtime.ReadyCheck{Name: "sqlite", Check: db.SQLiteReadyCheck(local.DB())})
		logger.Info("using sqlite store", "dsn", cfg.SQLiteDSN)
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPool)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo := storage.NewRepository(pool)
		store = repo
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		if cfg.KafkaBrokers != "" {
			assignments := consumer.New(logger, repo, inbox.NewRepository(), consumer.Config{
				Brokers: cfg.KafkaBrokers,
				GroupID: cfg.KafkaGroupID,
				Topics:  []string{cfg.BookedTopic, cfg.CancelledTopic},
			}, consumer.AssignmentHandler(logger, repo, cfg.BookedTopic, cfg.CancelledTopic))
			go assignments.Run(ctx)
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		} else {
			logger.Warn("assignment consumer disabled (no kafka brokers configured)")
		}
	}

	eng := engine.New(store, cfg.Engine, logger)

	limiter := httpx.NewRateLimiter(cfg.RateLimit, time.Minute).Middleware()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, time.Minute, cfg.Service).Middleware(logger, cfg.RateLimitFailOpen)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(eng, logger).Register(mux)

	// Admin routes need a bearer token once a signing secret or JWKS endpoint is configured.
	guard := func(next http.Handler) http.Handler { return next }
	if cfg.AuthSecret != "" || cfg.JWKSURL != "" {
		var keys auth.KeySource
		if cfg.JWKSURL != "" {
			keys = auth.NewJWKSClient(cfg.JWKSURL, 5*time.Minute, nil)
		}
		guard = httpx.Only(auth.Require(auth.NewVerifier(cfg.AuthSecret, keys), cfg.AdminRoles...),
			handlers.PathTroubleshoot, handlers.PathTroubleshootWindow, handlers.PathRoundRobinSelect)
	} else {
		logger.Warn("admin routes are unauthenticated (no AUTH_JWT_SECRET or AUTH_JWKS_URL)")
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.Only(limiter, handlers.PathPublicSlots),
		guard,
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger, cfg.GRPCPort, eng); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
