package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/slotengine/libs/db"
	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/google"
	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/outbox"
)

const maxRetryDelay = 6 * time.Hour

// BusySource is the calendar provider the worker reads from.
type BusySource interface {
	FreeBusy(ctx context.Context, tok google.Token, calendarID string, start, end time.Time) (google.Result, error)
}

type Worker struct {
	pool        *db.Pool
	repo        *Repository
	outbox      *outbox.Repository
	source      BusySource
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	horizon     time.Duration
	backoff     time.Duration
	maxAttempts int
	callTimeout time.Duration
	refresh     time.Duration
	now         func() time.Time
}

type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	HorizonDays int
	Backoff     time.Duration
	MaxAttempts int
	CallTimeout time.Duration
	// RefreshEvery is how long a synced connection waits before its next sync.
	RefreshEvery time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository, source BusySource, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 60
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = 15 * time.Minute
	}
	return &Worker{
		pool:        pool,
		repo:        repo,
		outbox:      outboxRepo,
		source:      source,
		logger:      logger,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		horizon:     time.Duration(cfg.HorizonDays) * 24 * time.Hour,
		backoff:     cfg.Backoff,
		maxAttempts: cfg.MaxAttempts,
		callTimeout: cfg.CallTimeout,
		refresh:     cfg.RefreshEvery,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("calendar sync batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	conns, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	for _, c := range conns {
		if err := w.syncOne(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// syncOne only returns database errors. Provider failures are recorded on the connection.
func (w *Worker) syncOne(ctx context.Context, tx pgx.Tx, c Connection) error {
	ctx, span := otel.Tracer("slotengine/calendar-sync-service/jobs").Start(ctx, "calendar.sync")
	span.SetAttributes(attribute.String("host.id", c.HostID), attribute.String("connection.id", c.ID))
	var err error
	defer func() { otelx.EndSpan(span, err) }()

	now := w.now()
	start := now.Truncate(time.Hour)
	end := start.Add(w.horizon)

	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	res, syncErr := w.source.FreeBusy(callCtx, c.Token, c.CalendarID, start, end)
	cancel()

	switch next := planRetry(syncErr, c.Attempts, w.maxAttempts, w.backoff); {
	case syncErr == nil:
		if err = w.repo.ReplaceBusyBlocks(ctx, tx, c, start, end, res.Busy); err != nil {
			return err
		}
		if err = w.repo.MarkSynced(ctx, tx, c, res.Token, now.Add(w.refresh)); err != nil {
			return err
		}
		err = w.emit(ctx, tx, c, outbox.TypeBusyBlocksSynced, syncedPayload(c, start, end, len(res.Busy), now))
		if err == nil {
			w.logger.Info("calendar synced", "host_id", c.HostID, "connection_id", c.ID, "busy_blocks", len(res.Busy))
		}
		return err
	case next.disconnect:
		if err = w.repo.Disconnect(ctx, tx, c, next.attempts, syncErr.Error()); err != nil {
			return err
		}
		w.logger.Warn("calendar connection disconnected", "host_id", c.HostID, "attempts", next.attempts, "err", syncErr)
		err = w.emit(ctx, tx, c, outbox.TypeConnectionDisconnected, disconnectedPayload(c, syncErr.Error(), now))
		return err
	default:
		w.logger.Warn("calendar sync failed", "host_id", c.HostID, "attempts", next.attempts, "err", syncErr)
		err = w.repo.MarkFailed(ctx, tx, c.ID, next.attempts, now.Add(next.delay), syncErr.Error())
		return err
	}
}

func (w *Worker) emit(ctx context.Context, tx pgx.Tx, c Connection, eventType string, payload []byte) error {
	return w.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "calendar_connection",
		AggregateID:   c.HostID,
		EventType:     eventType,
		Payload:       payload,
	})
}

type retryPlan struct {
	attempts   int
	delay      time.Duration
	disconnect bool
}

// planRetry decides what happens to a connection after a failed sync.
func planRetry(err error, attempts, maxAttempts int, backoff time.Duration) retryPlan {
	if err == nil {
		return retryPlan{}
	}
	p := retryPlan{attempts: attempts + 1}
	if errors.Is(err, google.ErrDisconnected) || p.attempts >= maxAttempts {
		p.disconnect = true
		return p
	}
	p.delay = retryDelay(backoff, p.attempts)
	return p
}

// retryDelay doubles base per attempt, capped at maxRetryDelay.
func retryDelay(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func syncedPayload(c Connection, start, end time.Time, count int, at time.Time) []byte {
	payload, _ := json.Marshal(map[string]any{
		"host_id":       c.HostID,
		"connection_id": c.ID,
		"window_start":  start.Format(time.RFC3339),
		"window_end":    end.Format(time.RFC3339),
		"busy_count":    count,
		"synced_at":     at.Format(time.RFC3339),
	})
	return payload
}

func disconnectedPayload(c Connection, reason string, at time.Time) []byte {
	payload, _ := json.Marshal(map[string]any{
		"host_id":         c.HostID,
		"connection_id":   c.ID,
		"reason":          reason,
		"disconnected_at": at.Format(time.RFC3339),
	})
	return payload
}
