package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

const (
	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
)

type AssignmentWriter interface {
	RecordAssignment(ctx context.Context, tx pgx.Tx, a model.Assignment, assignedAt time.Time) error
	CancelAssignment(ctx context.Context, tx pgx.Tx, appointmentID string, cancelledAt time.Time) (bool, error)
}

type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	EventID       string `json:"event_id"`
	HostID        string `json:"host_id"`
	MeetingType   string `json:"meeting_type"`
	StartTime     string `json:"start_time"`
	OccurredAt    string `json:"occurred_at"`
}

// AssignmentHandler keeps the round-robin ledger in step with bookings. Malformed
// messages are logged and dropped; store errors are returned for redelivery.
func AssignmentHandler(logger *slog.Logger, writer AssignmentWriter, bookedTopic, cancelledTopic string) Handler {
	return func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid appointment event", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID == "" {
			logger.Error("appointment event missing appointment_id", "topic", msg.Topic)
			return nil
		}
		occurred := parseTime(evt.OccurredAt, msg.Time)

		switch msg.Topic {
		case bookedTopic:
			if evt.MeetingType != "" && model.MeetingType(evt.MeetingType) != model.MeetingRoundRobin {
				return nil
			}
			start, err := time.Parse(time.RFC3339, evt.StartTime)
			if err != nil || evt.EventID == "" || evt.HostID == "" {
				logger.Error("booked event missing fields", "appointment_id", evt.AppointmentID)
				return nil
			}
			return writer.RecordAssignment(ctx, tx, model.Assignment{
				AppointmentID: evt.AppointmentID,
				EventID:       evt.EventID,
				HostID:        evt.HostID,
				StartTime:     start,
			}, occurred)
		case cancelledTopic:
			ok, err := writer.CancelAssignment(ctx, tx, evt.AppointmentID, occurred)
			if err != nil {
				return err
			}
			if !ok {
				logger.Debug("cancellation for unknown assignment", "appointment_id", evt.AppointmentID)
			}
			return nil
		default:
			logger.Warn("unexpected topic", "topic", msg.Topic)
			return nil
		}
	}
}

func parseTime(raw string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if fallback.IsZero() {
		return time.Now().UTC()
	}
	return fallback.UTC()
}
