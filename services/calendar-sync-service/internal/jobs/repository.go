package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotengine/services/calendar-sync-service/internal/google"
)

const (
	StatusActive       = "active"
	StatusDisconnected = "disconnected"
)

type Connection struct {
	ID         string
	HostID     string
	CalendarID string
	Token      google.Token
	Attempts   int
	NextSyncAt time.Time
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// FetchDue claims active connections whose next sync is due. Rows stay locked until tx ends.
func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Connection, error) {
	rows, err := tx.Query(ctx, `
		SELECT id::text, host_id::text, calendar_id, access_token, refresh_token, token_expiry, attempts, next_sync_at
		FROM calendar_connections
		WHERE status = 'active' AND next_sync_at <= now()
		ORDER BY next_sync_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Connection, error) {
		var c Connection
		var expiry *time.Time
		err := row.Scan(&c.ID, &c.HostID, &c.CalendarID, &c.Token.AccessToken, &c.Token.RefreshToken, &expiry, &c.Attempts, &c.NextSyncAt)
		if expiry != nil {
			c.Token.Expiry = *expiry
		}
		return c, err
	})
}

// ReplaceBusyBlocks swaps the busy time c contributed inside [start, end) for blocks.
// Blocks from the host's other connections are left alone.
func (r *Repository) ReplaceBusyBlocks(ctx context.Context, tx pgx.Tx, c Connection, start, end time.Time, blocks []google.Busy) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM busy_blocks
		WHERE connection_id = $1 AND start_time < $3 AND end_time > $2
	`, c.ID, start, end); err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"busy_blocks"},
		[]string{"connection_id", "host_id", "start_time", "end_time", "source"},
		pgx.CopyFromSlice(len(blocks), func(i int) ([]any, error) {
			return []any{c.ID, c.HostID, blocks[i].Start, blocks[i].End, "google"}, nil
		}),
	)
	return err
}

func (r *Repository) MarkSynced(ctx context.Context, tx pgx.Tx, c Connection, tok google.Token, nextSyncAt time.Time) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	if _, err := tx.Exec(ctx, `
		UPDATE calendar_connections
		SET access_token = $2,
		    refresh_token = $3,
		    token_expiry = $4,
		    attempts = 0,
		    next_sync_at = $5,
		    last_synced_at = now(),
		    last_error = NULL,
		    updated_at = now()
		WHERE id = $1
	`, c.ID, tok.AccessToken, tok.RefreshToken, expiry, nextSyncAt); err != nil {
		return err
	}
	return r.setHostConnected(ctx, tx, c.HostID)
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id string, attempts int, nextSyncAt time.Time, lastError string) error {
	_, err := tx.Exec(ctx, `
		UPDATE calendar_connections
		SET attempts = $2,
		    next_sync_at = $3,
		    last_error = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, nextSyncAt, lastError)
	return err
}

// Disconnect stops syncing c and drops the busy time it contributed. The host is marked
// disconnected once no active connection is left.
func (r *Repository) Disconnect(ctx context.Context, tx pgx.Tx, c Connection, attempts int, reason string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM busy_blocks WHERE connection_id = $1`, c.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE calendar_connections
		SET status = 'disconnected',
		    attempts = $2,
		    last_error = $3,
		    updated_at = now()
		WHERE id = $1
	`, c.ID, attempts, reason); err != nil {
		return err
	}
	return r.setHostConnected(ctx, tx, c.HostID)
}

func (r *Repository) setHostConnected(ctx context.Context, tx pgx.Tx, hostID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE hosts
		SET calendar_connected = EXISTS (
		        SELECT 1 FROM calendar_connections
		        WHERE host_id = $1 AND status = 'active' AND last_synced_at IS NOT NULL
		    ),
		    updated_at = now()
		WHERE id = $1
	`, hostID)
	return err
}
