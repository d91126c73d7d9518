package sqlite

import (
	"context"
	"fmt"
)

// Instants are stored as unix seconds so range predicates compare numerically.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS hosts (
		id                    TEXT PRIMARY KEY,
		tenant_id             TEXT NOT NULL DEFAULT '',
		name                  TEXT NOT NULL DEFAULT '',
		max_meetings_per_day  INTEGER,
		max_meetings_per_week INTEGER,
		calendar_connected    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                           TEXT PRIMARY KEY,
		tenant_id                    TEXT NOT NULL DEFAULT '',
		name                         TEXT NOT NULL DEFAULT '',
		owner_host_id                TEXT NOT NULL DEFAULT '',
		meeting_type                 TEXT NOT NULL DEFAULT 'one_on_one',
		duration_minutes             INTEGER NOT NULL,
		min_notice_hours             INTEGER NOT NULL DEFAULT 0,
		booking_window_days          INTEGER NOT NULL DEFAULT 60,
		buffer_before_minutes        INTEGER NOT NULL DEFAULT 0,
		buffer_after_minutes         INTEGER NOT NULL DEFAULT 0,
		start_time_increment_minutes INTEGER NOT NULL DEFAULT 0,
		max_daily_bookings           INTEGER,
		max_weekly_bookings          INTEGER,
		max_attendees                INTEGER NOT NULL DEFAULT 1,
		timezone                     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS event_participants (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		host_id  TEXT NOT NULL,
		role     TEXT NOT NULL DEFAULT 'host',
		weight   INTEGER NOT NULL DEFAULT 1,
		UNIQUE (event_id, host_id)
	)`,
	`CREATE TABLE IF NOT EXISTS availability_patterns (
		id          TEXT PRIMARY KEY,
		host_id     TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		timezone    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS busy_blocks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		host_id    TEXT NOT NULL,
		start_unix INTEGER NOT NULL,
		end_unix   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS busy_blocks_host_idx ON busy_blocks (host_id, start_unix)`,
	`CREATE TABLE IF NOT EXISTS slots (
		id            TEXT PRIMARY KEY,
		event_id      TEXT NOT NULL,
		host_id       TEXT NOT NULL DEFAULT '',
		start_unix    INTEGER NOT NULL,
		end_unix      INTEGER NOT NULL,
		booking_count INTEGER NOT NULL DEFAULT 0,
		cancelled     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS slots_event_idx ON slots (event_id, start_unix)`,
	`CREATE TABLE IF NOT EXISTS round_robin_assignments (
		appointment_id TEXT PRIMARY KEY,
		event_id       TEXT NOT NULL,
		host_id        TEXT NOT NULL,
		start_unix     INTEGER NOT NULL,
		assigned_unix  INTEGER NOT NULL,
		cancelled_unix INTEGER
	)`,
}

// Migrate creates the schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration %d: %w", i+1, err)
		}
	}
	return nil
}
