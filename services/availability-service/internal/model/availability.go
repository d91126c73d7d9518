package model

import "time"

// Pattern is a weekly recurring availability rule. StartTime and EndTime are local
// clock values ("09:00", "17:30", "24:00") interpreted in Timezone.
type Pattern struct {
	ID        string
	HostID    string
	DayOfWeek int
	StartTime string
	EndTime   string
	Timezone  string
}

// BusyBlock is a calendar-busy interval synced from an external calendar.
type BusyBlock struct {
	HostID string
	Start  time.Time
	End    time.Time
}

// Slot is a concrete instance of an event. BookingCount counts non-cancelled bookings.
type Slot struct {
	ID           string
	EventID      string
	HostID       string
	Start        time.Time
	End          time.Time
	BookingCount int
	Cancelled    bool
}

// CountScope selects the meetings counted for a cap: all of a host's meetings, or only
// those for EventID when set.
type CountScope struct {
	HostID  string
	EventID string
}

// AssignmentStat is the round-robin history of one host for one event.
type AssignmentStat struct {
	HostID         string
	Count          int
	LastAssignedAt time.Time
}

// Assignment is one booking routed to a host of a multi-host event.
type Assignment struct {
	AppointmentID string
	EventID       string
	HostID        string
	StartTime     time.Time
}
