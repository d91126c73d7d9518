package engine

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

// Store is the read side the engine evaluates against. Lookups of missing rows return
// model.ErrNotFound.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	GetHost(ctx context.Context, hostID string) (model.Host, error)
	ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error)
	ListPatterns(ctx context.Context, hostID string) ([]model.Pattern, error)
	ListBusyBlocks(ctx context.Context, hostID string, start, end time.Time) ([]model.BusyBlock, error)
	ListExistingSlots(ctx context.Context, eventID string, start, end time.Time) ([]model.Slot, error)
	// CountMeetings counts non-cancelled meetings starting in [start, end).
	CountMeetings(ctx context.Context, scope model.CountScope, start, end time.Time) (int, error)
	AssignmentStats(ctx context.Context, eventID string) ([]model.AssignmentStat, error)
}
