package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
)

type fakeReader struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	next   int
	log    []string
	onDone func()
	want   int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.next < len(r.msgs) {
		m := r.msgs[r.next]
		r.next++
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.log = append(r.log, fmt.Sprintf("commit %d", m.Offset))
	}
	if len(r.log) >= r.want {
		r.onDone()
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) record(entry string) {
	r.mu.Lock()
	r.log = append(r.log, entry)
	r.mu.Unlock()
}

type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type fakeInbox struct{}

func (fakeInbox) Record(context.Context, pgx.Tx, string, string) (bool, error) { return true, nil }

func message(offset int64) kafka.Message {
	meta := kafkax.EventMeta{EventID: fmt.Sprintf("evt-%d", offset), EventType: "booking.booked"}
	return kafka.Message{Topic: "booking.events", Offset: offset, Headers: meta.Headers()}
}

func TestFailedMessageIsRetriedBeforeCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{msgs: []kafka.Message{message(1), message(2)}, onDone: cancel}
	failed := false
	c := &Consumer{
		reader: reader,
		db:     fakeDB{},
		inbox:  fakeInbox{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		handler: func(_ context.Context, _ pgx.Tx, msg kafka.Message) error {
			reader.record(fmt.Sprintf("handle %d", msg.Offset))
			if msg.Offset == 1 && !failed {
				failed = true
				return errors.New("store unavailable")
			}
			return nil
		},
		retryBase: time.Millisecond,
		retryMax:  5 * time.Millisecond,
	}
	// handle 1 (fail), handle 1, commit 1, handle 2, commit 2
	reader.want = 5

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}

	want := []string{"handle 1", "handle 1", "commit 1", "handle 2", "commit 2"}
	if len(reader.log) != len(want) {
		t.Fatalf("expected %v, got %v", want, reader.log)
	}
	for i := range want {
		if reader.log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, reader.log)
		}
	}
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reader := &fakeReader{msgs: []kafka.Message{message(7)}, onDone: func() {}, want: 1}
	attempts := 0
	c := &Consumer{
		reader: reader,
		db:     fakeDB{},
		inbox:  fakeInbox{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		handler: func(context.Context, pgx.Tx, kafka.Message) error {
			attempts++
			if attempts == 3 {
				cancel()
			}
			return errors.New("store unavailable")
		},
		retryBase: time.Millisecond,
		retryMax:  time.Millisecond,
	}

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	if attempts < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", attempts)
	}
	for _, entry := range reader.log {
		if entry == "commit 7" {
			t.Fatal("a message that never succeeded must not be committed")
		}
	}
}
