package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

// Repository is the Postgres implementation of the engine store and of the round-robin
// assignment ledger.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	var ev model.Event
	var meetingType string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, name, COALESCE(owner_host_id::text, ''), meeting_type,
			duration_minutes, min_notice_hours, booking_window_days,
			buffer_before_minutes, buffer_after_minutes, start_time_increment_minutes,
			max_daily_bookings, max_weekly_bookings, max_attendees, timezone
		FROM events
		WHERE id = $1
	`, eventID).Scan(
		&ev.ID,
		&ev.TenantID,
		&ev.Name,
		&ev.OwnerHostID,
		&meetingType,
		&ev.DurationMinutes,
		&ev.MinNoticeHours,
		&ev.BookingWindowDays,
		&ev.BufferBeforeMinutes,
		&ev.BufferAfterMinutes,
		&ev.StartTimeIncrementMinutes,
		&ev.MaxDailyBookings,
		&ev.MaxWeeklyBookings,
		&ev.MaxAttendees,
		&ev.Timezone,
	)
	if db.IsNoRows(err) {
		return model.Event{}, model.ErrNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	ev.MeetingType = model.MeetingType(meetingType)
	return ev, nil
}

func (r *Repository) GetHost(ctx context.Context, hostID string) (model.Host, error) {
	var h model.Host
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, name, max_meetings_per_day, max_meetings_per_week, calendar_connected
		FROM hosts
		WHERE id = $1
	`, hostID).Scan(&h.ID, &h.TenantID, &h.Name, &h.MaxMeetingsPerDay, &h.MaxMeetingsPerWeek, &h.CalendarConnected)
	if db.IsNoRows(err) {
		return model.Host{}, model.ErrNotFound
	}
	return h, err
}

// ListParticipants returns the event's hosts in the order they were added.
func (r *Repository) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.id::text, h.tenant_id::text, h.name, h.max_meetings_per_day, h.max_meetings_per_week,
			h.calendar_connected, p.role, p.weight
		FROM event_participants p
		JOIN hosts h ON h.id = p.host_id
		WHERE p.event_id = $1
		ORDER BY p.position
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var role string
		if err := rows.Scan(&p.Host.ID, &p.Host.TenantID, &p.Host.Name, &p.Host.MaxMeetingsPerDay, &p.Host.MaxMeetingsPerWeek,
			&p.Host.CalendarConnected, &role, &p.Weight); err != nil {
			return nil, err
		}
		p.Role = model.Role(role)
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListPatterns(ctx context.Context, hostID string) ([]model.Pattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, host_id::text, day_of_week, start_time, end_time, timezone
		FROM availability_patterns
		WHERE host_id = $1
		ORDER BY day_of_week, start_time
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Pattern
	for rows.Next() {
		var p model.Pattern
		if err := rows.Scan(&p.ID, &p.HostID, &p.DayOfWeek, &p.StartTime, &p.EndTime, &p.Timezone); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListBusyBlocks returns blocks intersecting [start, end).
func (r *Repository) ListBusyBlocks(ctx context.Context, hostID string, start, end time.Time) ([]model.BusyBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT host_id::text, start_time, end_time
		FROM busy_blocks
		WHERE host_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, hostID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BusyBlock
	for rows.Next() {
		var b model.BusyBlock
		if err := rows.Scan(&b.HostID, &b.Start, &b.End); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListExistingSlots returns the event's slots intersecting [start, end), cancelled included.
func (r *Repository) ListExistingSlots(ctx context.Context, eventID string, start, end time.Time) ([]model.Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, event_id::text, COALESCE(host_id::text, ''), start_time, end_time, booking_count, cancelled
		FROM slots
		WHERE event_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, eventID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.EventID, &s.HostID, &s.Start, &s.End, &s.BookingCount, &s.Cancelled); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CountMeetings counts booked, non-cancelled slots of the host starting in [start, end).
func (r *Repository) CountMeetings(ctx context.Context, scope model.CountScope, start, end time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM slots
		WHERE host_id = $1
			AND ($2 = '' OR event_id::text = $2)
			AND NOT cancelled AND booking_count > 0
			AND start_time >= $3 AND start_time < $4
	`, scope.HostID, scope.EventID, start, end).Scan(&n)
	return n, err
}

func (r *Repository) AssignmentStats(ctx context.Context, eventID string) ([]model.AssignmentStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT host_id::text, count(*), max(assigned_at)
		FROM round_robin_assignments
		WHERE event_id = $1 AND cancelled_at IS NULL
		GROUP BY host_id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AssignmentStat
	for rows.Next() {
		var s model.AssignmentStat
		if err := rows.Scan(&s.HostID, &s.Count, &s.LastAssignedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// RecordAssignment stores a booked round-robin appointment. Replays are no-ops.
func (r *Repository) RecordAssignment(ctx context.Context, tx pgx.Tx, a model.Assignment, assignedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO round_robin_assignments (appointment_id, event_id, host_id, start_time, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (appointment_id) DO NOTHING
	`, a.AppointmentID, a.EventID, a.HostID, a.StartTime, assignedAt)
	return err
}

// CancelAssignment removes an appointment from the distribution. It reports whether a
// live assignment existed.
func (r *Repository) CancelAssignment(ctx context.Context, tx pgx.Tx, appointmentID string, cancelledAt time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE round_robin_assignments
		SET cancelled_at = $2
		WHERE appointment_id = $1 AND cancelled_at IS NULL
	`, appointmentID, cancelledAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
