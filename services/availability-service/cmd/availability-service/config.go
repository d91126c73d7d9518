package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/config"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/roundrobin"
)

type settings struct {
	Service     string
	Port        string
	GRPCPort    string
	StoreDriver string
	DatabaseURL string
	DBPool      db.PoolOptions
	SQLiteDSN   string

	Engine engine.Config

	RedisURL          string
	RateLimit         int
	RateLimitFailOpen bool
	CORSOrigins       []string

	AuthSecret string
	JWKSURL    string
	AdminRoles []string

	KafkaBrokers   string
	KafkaGroupID   string
	BookedTopic    string
	CancelledTopic string
}

func loadSettings() (settings, error) {
	var s settings
	var err error

	s.Service = config.String("SERVICE_NAME", "availability-service")
	if s.Port, err = config.Port("PORT", "8090"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return s, err
	}

	s.StoreDriver = config.String("STORE_DRIVER", "postgres")
	switch s.StoreDriver {
	case "postgres":
		if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return s, err
		}
		if s.DBPool, err = db.PoolOptionsFromEnv(); err != nil {
			return s, err
		}
	case "sqlite":
		s.SQLiteDSN = config.String("SQLITE_DSN", "file:slotengine.db?_foreign_keys=on")
	default:
		return s, fmt.Errorf("STORE_DRIVER must be postgres or sqlite (got %q)", s.StoreDriver)
	}

	strategy, err := roundrobin.ParseStrategy(config.String("ROUND_ROBIN_STRATEGY", string(roundrobin.StrategyPriority)))
	if err != nil {
		return s, err
	}
	maxDays, err := config.Int("MAX_LISTING_DAYS", 31)
	if err != nil {
		return s, err
	}
	fetchTimeout, err := config.Duration("FETCH_TIMEOUT", 3*time.Second)
	if err != nil {
		return s, err
	}
	s.Engine = engine.Config{
		DefaultTimezone: config.String("DEFAULT_TIMEZONE", "UTC"),
		FetchTimeout:    fetchTimeout,
		MaxListingDays:  maxDays,
		Strategy:        strategy,
	}

	s.RedisURL = config.String("REDIS_URL", "")
	if s.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	s.RateLimitFailOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	s.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS")

	s.AuthSecret = config.String("AUTH_JWT_SECRET", "")
	s.JWKSURL = config.String("AUTH_JWKS_URL", "")
	if s.AdminRoles = config.List("AUTH_ADMIN_ROLES"); len(s.AdminRoles) == 0 {
		s.AdminRoles = []string{"owner", "admin"}
	}

	s.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	s.KafkaGroupID = config.String("KAFKA_GROUP_ID", "availability-service")
	s.BookedTopic = config.String("KAFKA_BOOKED_TOPIC", consumer.TopicAppointmentBooked)
	s.CancelledTopic = config.String("KAFKA_CANCELLED_TOPIC", consumer.TopicAppointmentCancelled)
	return s, nil
}
