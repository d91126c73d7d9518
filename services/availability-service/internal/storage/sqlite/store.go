// Package sqlite is a single-file implementation of the engine store for local runs.
package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

type Store struct {
	db *sqlx.DB
}

func New(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	conn, err := db.OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := New(conn)
	if err := s.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

type hostRow struct {
	ID                 string `db:"id"`
	TenantID           string `db:"tenant_id"`
	Name               string `db:"name"`
	MaxMeetingsPerDay  *int   `db:"max_meetings_per_day"`
	MaxMeetingsPerWeek *int   `db:"max_meetings_per_week"`
	CalendarConnected  bool   `db:"calendar_connected"`
}

func (r hostRow) model() model.Host {
	return model.Host{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		Name:               r.Name,
		MaxMeetingsPerDay:  r.MaxMeetingsPerDay,
		MaxMeetingsPerWeek: r.MaxMeetingsPerWeek,
		CalendarConnected:  r.CalendarConnected,
	}
}

type eventRow struct {
	ID                        string `db:"id"`
	TenantID                  string `db:"tenant_id"`
	Name                      string `db:"name"`
	OwnerHostID               string `db:"owner_host_id"`
	MeetingType               string `db:"meeting_type"`
	DurationMinutes           int    `db:"duration_minutes"`
	MinNoticeHours            int    `db:"min_notice_hours"`
	BookingWindowDays         int    `db:"booking_window_days"`
	BufferBeforeMinutes       int    `db:"buffer_before_minutes"`
	BufferAfterMinutes        int    `db:"buffer_after_minutes"`
	StartTimeIncrementMinutes int    `db:"start_time_increment_minutes"`
	MaxDailyBookings          *int   `db:"max_daily_bookings"`
	MaxWeeklyBookings         *int   `db:"max_weekly_bookings"`
	MaxAttendees              int    `db:"max_attendees"`
	Timezone                  string `db:"timezone"`
}

type participantRow struct {
	hostRow
	Role   string `db:"role"`
	Weight int    `db:"weight"`
}

type intervalRow struct {
	HostID    string `db:"host_id"`
	StartUnix int64  `db:"start_unix"`
	EndUnix   int64  `db:"end_unix"`
}

type slotRow struct {
	ID           string `db:"id"`
	EventID      string `db:"event_id"`
	HostID       string `db:"host_id"`
	StartUnix    int64  `db:"start_unix"`
	EndUnix      int64  `db:"end_unix"`
	BookingCount int    `db:"booking_count"`
	Cancelled    bool   `db:"cancelled"`
}

type statRow struct {
	HostID       string `db:"host_id"`
	Count        int    `db:"n"`
	LastAssigned int64  `db:"last_assigned"`
}

func unix(t time.Time) int64 { return t.Unix() }

func instant(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func (s *Store) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	var r eventRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM events WHERE id = ?`, eventID)
	if db.IsNoRows(err) {
		return model.Event{}, model.ErrNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:                        r.ID,
		TenantID:                  r.TenantID,
		Name:                      r.Name,
		OwnerHostID:               r.OwnerHostID,
		MeetingType:               model.MeetingType(r.MeetingType),
		DurationMinutes:           r.DurationMinutes,
		MinNoticeHours:            r.MinNoticeHours,
		BookingWindowDays:         r.BookingWindowDays,
		BufferBeforeMinutes:       r.BufferBeforeMinutes,
		BufferAfterMinutes:        r.BufferAfterMinutes,
		StartTimeIncrementMinutes: r.StartTimeIncrementMinutes,
		MaxDailyBookings:          r.MaxDailyBookings,
		MaxWeeklyBookings:         r.MaxWeeklyBookings,
		MaxAttendees:              r.MaxAttendees,
		Timezone:                  r.Timezone,
	}, nil
}

func (s *Store) GetHost(ctx context.Context, hostID string) (model.Host, error) {
	var r hostRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM hosts WHERE id = ?`, hostID)
	if db.IsNoRows(err) {
		return model.Host{}, model.ErrNotFound
	}
	if err != nil {
		return model.Host{}, err
	}
	return r.model(), nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	var rows []participantRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT h.id, h.tenant_id, h.name, h.max_meetings_per_day, h.max_meetings_per_week, h.calendar_connected,
			p.role, p.weight
		FROM event_participants p
		JOIN hosts h ON h.id = p.host_id
		WHERE p.event_id = ?
		ORDER BY p.position
	`, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Participant{Host: r.hostRow.model(), Role: model.Role(r.Role), Weight: r.Weight})
	}
	return out, nil
}

func (s *Store) ListPatterns(ctx context.Context, hostID string) ([]model.Pattern, error) {
	var out []model.Pattern
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, host_id, day_of_week, start_time, end_time, timezone
		FROM availability_patterns
		WHERE host_id = ?
		ORDER BY day_of_week, start_time
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Pattern
		if err := rows.Scan(&p.ID, &p.HostID, &p.DayOfWeek, &p.StartTime, &p.EndTime, &p.Timezone); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListBusyBlocks(ctx context.Context, hostID string, start, end time.Time) ([]model.BusyBlock, error) {
	var rows []intervalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT host_id, start_unix, end_unix
		FROM busy_blocks
		WHERE host_id = ? AND start_unix < ? AND end_unix > ?
		ORDER BY start_unix
	`, hostID, unix(end), unix(start))
	if err != nil {
		return nil, err
	}
	out := make([]model.BusyBlock, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.BusyBlock{HostID: r.HostID, Start: instant(r.StartUnix), End: instant(r.EndUnix)})
	}
	return out, nil
}

func (s *Store) ListExistingSlots(ctx context.Context, eventID string, start, end time.Time) ([]model.Slot, error) {
	var rows []slotRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, event_id, host_id, start_unix, end_unix, booking_count, cancelled
		FROM slots
		WHERE event_id = ? AND start_unix < ? AND end_unix > ?
		ORDER BY start_unix
	`, eventID, unix(end), unix(start))
	if err != nil {
		return nil, err
	}
	out := make([]model.Slot, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Slot{
			ID:           r.ID,
			EventID:      r.EventID,
			HostID:       r.HostID,
			Start:        instant(r.StartUnix),
			End:          instant(r.EndUnix),
			BookingCount: r.BookingCount,
			Cancelled:    r.Cancelled,
		})
	}
	return out, nil
}

func (s *Store) CountMeetings(ctx context.Context, scope model.CountScope, start, end time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT count(*)
		FROM slots
		WHERE host_id = ? AND (? = '' OR event_id = ?)
			AND cancelled = 0 AND booking_count > 0
			AND start_unix >= ? AND start_unix < ?
	`, scope.HostID, scope.EventID, scope.EventID, unix(start), unix(end))
	return n, err
}

func (s *Store) AssignmentStats(ctx context.Context, eventID string) ([]model.AssignmentStat, error) {
	var rows []statRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT host_id, count(*) AS n, max(assigned_unix) AS last_assigned
		FROM round_robin_assignments
		WHERE event_id = ? AND cancelled_unix IS NULL
		GROUP BY host_id
	`, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]model.AssignmentStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AssignmentStat{HostID: r.HostID, Count: r.Count, LastAssignedAt: instant(r.LastAssigned)})
	}
	return out, nil
}

// Writes below seed local databases and back the tests.

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (s *Store) PutHost(ctx context.Context, h model.Host) (string, error) {
	h.ID = newID(h.ID)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hosts (id, tenant_id, name, max_meetings_per_day, max_meetings_per_week, calendar_connected)
		VALUES (:id, :tenant_id, :name, :max_meetings_per_day, :max_meetings_per_week, :calendar_connected)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			max_meetings_per_day = excluded.max_meetings_per_day,
			max_meetings_per_week = excluded.max_meetings_per_week,
			calendar_connected = excluded.calendar_connected
	`, hostRow{
		ID: h.ID, TenantID: h.TenantID, Name: h.Name,
		MaxMeetingsPerDay: h.MaxMeetingsPerDay, MaxMeetingsPerWeek: h.MaxMeetingsPerWeek,
		CalendarConnected: h.CalendarConnected,
	})
	return h.ID, err
}

func (s *Store) PutEvent(ctx context.Context, ev model.Event) (string, error) {
	ev.ID = newID(ev.ID)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, tenant_id, name, owner_host_id, meeting_type, duration_minutes,
			min_notice_hours, booking_window_days, buffer_before_minutes, buffer_after_minutes,
			start_time_increment_minutes, max_daily_bookings, max_weekly_bookings, max_attendees, timezone)
		VALUES (:id, :tenant_id, :name, :owner_host_id, :meeting_type, :duration_minutes,
			:min_notice_hours, :booking_window_days, :buffer_before_minutes, :buffer_after_minutes,
			:start_time_increment_minutes, :max_daily_bookings, :max_weekly_bookings, :max_attendees, :timezone)
	`, eventRow{
		ID:                        ev.ID,
		TenantID:                  ev.TenantID,
		Name:                      ev.Name,
		OwnerHostID:               ev.OwnerHostID,
		MeetingType:               string(ev.MeetingType),
		DurationMinutes:           ev.DurationMinutes,
		MinNoticeHours:            ev.MinNoticeHours,
		BookingWindowDays:         ev.BookingWindowDays,
		BufferBeforeMinutes:       ev.BufferBeforeMinutes,
		BufferAfterMinutes:        ev.BufferAfterMinutes,
		StartTimeIncrementMinutes: ev.StartTimeIncrementMinutes,
		MaxDailyBookings:          ev.MaxDailyBookings,
		MaxWeeklyBookings:         ev.MaxWeeklyBookings,
		MaxAttendees:              ev.MaxAttendees,
		Timezone:                  ev.Timezone,
	})
	return ev.ID, err
}

func (s *Store) AddParticipant(ctx context.Context, eventID, hostID string, role model.Role, weight int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_participants (event_id, host_id, role, weight) VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, host_id) DO UPDATE SET role = excluded.role, weight = excluded.weight
	`, eventID, hostID, string(role), weight)
	return err
}

func (s *Store) AddPattern(ctx context.Context, p model.Pattern) (string, error) {
	p.ID = newID(p.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_patterns (id, host_id, day_of_week, start_time, end_time, timezone)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.HostID, p.DayOfWeek, p.StartTime, p.EndTime, p.Timezone)
	return p.ID, err
}

func (s *Store) AddBusyBlock(ctx context.Context, b model.BusyBlock) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO busy_blocks (host_id, start_unix, end_unix) VALUES (?, ?, ?)
	`, b.HostID, unix(b.Start), unix(b.End))
	return err
}

func (s *Store) AddSlot(ctx context.Context, sl model.Slot) (string, error) {
	sl.ID = newID(sl.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (id, event_id, host_id, start_unix, end_unix, booking_count, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sl.ID, sl.EventID, sl.HostID, unix(sl.Start), unix(sl.End), sl.BookingCount, sl.Cancelled)
	return sl.ID, err
}

func (s *Store) RecordAssignment(ctx context.Context, a model.Assignment, assignedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO round_robin_assignments (appointment_id, event_id, host_id, start_unix, assigned_unix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (appointment_id) DO NOTHING
	`, a.AppointmentID, a.EventID, a.HostID, unix(a.StartTime), unix(assignedAt))
	return err
}

func (s *Store) CancelAssignment(ctx context.Context, appointmentID string, cancelledAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE round_robin_assignments SET cancelled_unix = ?
		WHERE appointment_id = ? AND cancelled_unix IS NULL
	`, unix(cancelledAt), appointmentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
