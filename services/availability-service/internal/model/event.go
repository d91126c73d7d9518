package model

import "time"

type MeetingType string

const (
	MeetingOneOnOne   MeetingType = "one_on_one"
	MeetingGroup      MeetingType = "group"
	MeetingRoundRobin MeetingType = "round_robin"
	MeetingCollective MeetingType = "collective"
	MeetingWebinar    MeetingType = "webinar"
)

// Event is a bookable session type and the container of its booking rules.
// Nil caps mean unlimited.
type Event struct {
	ID                        string
	TenantID                  string
	Name                      string
	OwnerHostID               string
	MeetingType               MeetingType
	DurationMinutes           int
	MinNoticeHours            int
	BookingWindowDays         int
	BufferBeforeMinutes       int
	BufferAfterMinutes        int
	StartTimeIncrementMinutes int
	MaxDailyBookings          *int
	MaxWeeklyBookings         *int
	MaxAttendees              int
	Timezone                  string
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Increment is the candidate step. Unset increments step by the event duration.
func (e Event) Increment() time.Duration {
	if e.StartTimeIncrementMinutes > 0 {
		return time.Duration(e.StartTimeIncrementMinutes) * time.Minute
	}
	return e.Duration()
}

func (e Event) BufferBefore() time.Duration {
	return time.Duration(e.BufferBeforeMinutes) * time.Minute
}

func (e Event) BufferAfter() time.Duration {
	return time.Duration(e.BufferAfterMinutes) * time.Minute
}

// MultiHost reports whether several hosts share the event's availability.
func (e Event) MultiHost() bool {
	return e.MeetingType == MeetingRoundRobin || e.MeetingType == MeetingCollective
}

// SharesSlots reports whether several attendees can book the same slot.
func (e Event) SharesSlots() bool {
	return e.MeetingType == MeetingGroup || e.MeetingType == MeetingWebinar
}
