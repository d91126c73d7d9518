package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
)

// Handler applies one message inside the transaction that also records it in the inbox.
type Handler func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error

type Inbox interface {
	Record(ctx context.Context, tx pgx.Tx, eventID string, eventType string) (bool, error)
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

const (
	retryBase = time.Second
	retryMax  = 30 * time.Second
)

type Consumer struct {
	reader  messageReader
	db      TxBeginner
	inbox   Inbox
	logger  *slog.Logger
	handler Handler

	retryBase time.Duration
	retryMax  time.Duration
}

func New(logger *slog.Logger, db TxBeginner, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{
		reader:  reader,
		db:      db,
		inbox:   inbox,
		logger:  logger,
		handler: handler,

		retryBase: retryBase,
		retryMax:  retryMax,
	}
}

// Run reads until ctx is done. Offsets are committed only after the message's
// transaction commits, so a crash replays it and the inbox drops the replay. A message
// that fails is retried in place; later messages wait behind it.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		if !c.processWithRetry(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit error", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// processWithRetry reports false when ctx ends before msg is applied.
func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) bool {
	delay := c.retryBase
	for attempt := 1; ; attempt++ {
		err := c.process(ctx, msg)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("message processing failed, retrying",
			"err", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
			"attempt", attempt, "retry_in", delay)
		if !sleep(ctx, delay) {
			return false
		}
		delay *= 2
		if delay > c.retryMax {
			delay = c.retryMax
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) (err error) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer func() { otelx.EndSpan(span, err) }()

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		c.logger.Warn("message without event id skipped", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		c.logger.Error("begin tx failed", "err", err)
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ok, err := c.inbox.Record(ctx, tx, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
		return err
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctx, tx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		return err
	}
	return tx.Commit(ctx)
}
