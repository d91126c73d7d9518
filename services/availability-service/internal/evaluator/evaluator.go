// Package evaluator classifies candidate booking windows of an event with a single reason
// code each. It performs no I/O: everything it needs arrives in Input.
package evaluator

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/patterns"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

// HostSnapshot is everything read for one participating host.
type HostSnapshot struct {
	Participant model.Participant
	Patterns    []model.Pattern
	Busy        []model.BusyBlock

	// Meetings already scheduled for the host, across all events and for this event,
	// in the day and the week of the evaluated date.
	DayCount       int
	WeekCount      int
	EventDayCount  int
	EventWeekCount int

	// Unavailable marks a host whose reads failed. It can never clear a window.
	Unavailable bool
}

func (h HostSnapshot) ID() string {
	return h.Participant.Host.ID
}

// Input is a complete snapshot for one event and one calendar date.
type Input struct {
	Event model.Event
	Hosts []HostSnapshot
	// Slots are the event's existing slots around the date, for any host.
	Slots []model.Slot
	// Date is read as a civil date (year, month, day) in the event timezone.
	Date time.Time

	Now             time.Time
	DefaultTimezone string
}

// Location is the event timezone, falling back to DefaultTimezone and then UTC.
func (in Input) Location() *time.Location {
	def, err := timewindow.Location(in.DefaultTimezone, time.UTC)
	if err != nil {
		def = time.UTC
	}
	loc, err := timewindow.Location(in.Event.Timezone, def)
	if err != nil {
		return def
	}
	return loc
}

// Evaluate classifies every candidate window of the date, or returns a day-level result
// when no host exists, none has any availability, or none has availability that day.
func Evaluate(in Input) Result {
	ev := prepare(in, in.Date)
	date := dateOf(ev.day.Start)
	tz := ev.loc.String()

	if len(ev.hosts) == 0 {
		return dayLevel(date, tz, CodeNoHost, ev.unavailable)
	}
	if !ev.resolved.AnyConfigured() {
		return dayLevel(date, tz, CodeNoAvailability, ev.unavailable)
	}
	bounds, ok := ev.resolved.Bounds()
	if !ok {
		return dayLevel(date, tz, CodeOutsideHours, ev.unavailable)
	}

	first := timewindow.FloorHour(bounds.Start.In(ev.loc))
	last := timewindow.CeilHour(bounds.End.In(ev.loc))
	var slots []SlotResult
	for w := range timewindow.Candidates(first, last, in.Event.Duration(), in.Event.Increment()) {
		slots = append(slots, ev.classify(w))
	}
	return SlotEnumerationResult{
		Date:             date,
		Timezone:         tz,
		Slots:            slots,
		Summary:          summarize(slots),
		UnavailableHosts: ev.unavailable,
	}
}

// Classify runs the full check order against one window. The date of in is replaced by
// the window's start date in the event timezone, and day-level conditions are reported
// as the window's code.
func Classify(in Input, w timewindow.Interval) SlotResult {
	loc := in.Location()
	ev := prepare(in, w.Start.In(loc))
	if len(ev.hosts) == 0 {
		return SlotResult{Window: w.In(loc), Code: CodeNoHost, Reason: CodeNoHost.Reason()}
	}
	return ev.classify(w.In(loc))
}

func dayLevel(date, tz string, code Code, unavailable []string) DayLevelResult {
	return DayLevelResult{Date: date, Timezone: tz, Code: code, Reason: code.Reason(), UnavailableHosts: unavailable}
}

type hostState struct {
	snap HostSnapshot
	day  patterns.HostDay
	cal  busy.Calendar
}

type evaluation struct {
	in          Input
	loc         *time.Location
	day         timewindow.Interval
	hosts       []hostState
	resolved    patterns.Day
	unavailable []string
}

func prepare(in Input, date time.Time) *evaluation {
	loc := in.Location()
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	ev := &evaluation{in: in, loc: loc, day: timewindow.DayBounds(start)}

	// Busy blocks are kept for a day either side so buffered slots near midnight
	// still see them.
	busyRange := timewindow.Interval{Start: ev.day.Start.AddDate(0, 0, -1), End: ev.day.End.AddDate(0, 0, 1)}

	for _, h := range in.Hosts {
		if !h.Participant.Role.Rotates() {
			continue
		}
		st := hostState{snap: h}
		if h.Unavailable {
			ev.unavailable = append(ev.unavailable, h.ID())
			st.day = patterns.HostDay{HostID: h.ID(), Status: patterns.StatusNoneConfigured}
			st.cal = busy.Calendar{HostID: h.ID()}
		} else {
			st.day = patterns.Resolve(h.ID(), h.Patterns, ev.day)
			st.cal = busy.Aggregate(h.ID(), h.Participant.Host.CalendarConnected, h.Busy, busyRange)
		}
		ev.hosts = append(ev.hosts, st)
		ev.resolved.Hosts = append(ev.resolved.Hosts, st.day)
	}
	return ev
}

func (ev *evaluation) collective() bool {
	return ev.in.Event.MeetingType == model.MeetingCollective
}

func (ev *evaluation) classify(w timewindow.Interval) SlotResult {
	res := SlotResult{Window: w}
	res.Code, res.Details = ev.check(w)
	res.Reason = res.Code.Reason()
	return res
}

func (ev *evaluation) check(w timewindow.Interval) (Code, *Details) {
	in := ev.in
	now := in.Now.In(ev.loc)

	if w.Start.Before(now) {
		return CodePast, nil
	}
	if w.Start.Before(now.Add(time.Duration(in.Event.MinNoticeHours) * time.Hour)) {
		return CodeTooSoon, nil
	}
	if in.Event.BookingWindowDays > 0 && w.Start.After(now.AddDate(0, 0, in.Event.BookingWindowDays)) {
		return CodeTooLate, nil
	}

	if !ev.resolved.AnyConfigured() {
		return CodeNoAvailability, nil
	}
	var candidates []hostState
	for _, h := range ev.hosts {
		if h.day.Contains(w) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 || (ev.collective() && len(candidates) < len(ev.hosts)) {
		return CodeOutsideHours, details(candidates, nil, nil)
	}

	var cleared []hostState
	connected := false
	for _, h := range candidates {
		if h.cal.Connected {
			connected = true
		}
		if h.cal.Clears(w) {
			cleared = append(cleared, h)
		}
	}
	if len(cleared) == 0 || (ev.collective() && len(cleared) < len(candidates)) {
		if !connected || (ev.collective() && !allConnected(candidates)) {
			return CodeNoCalendar, details(candidates, nil, nil)
		}
		return CodeCalendar, details(candidates, nil, nil)
	}

	var open []hostState
	daily, weekly := false, false
	for _, h := range cleared {
		d, wk := ev.capped(h.snap)
		daily = daily || d
		weekly = weekly || wk
		if !d && !wk {
			open = append(open, h)
		}
	}
	if len(open) == 0 || (ev.collective() && len(open) < len(cleared)) {
		if daily {
			return CodeDailyMax, details(candidates, nil, nil)
		}
		return CodeWeeklyMax, details(candidates, nil, nil)
	}

	if c, ok := ev.conflict(w, false); ok {
		return CodeBooked, details(candidates, open, &c)
	}
	if c, ok := ev.conflict(w, true); ok {
		return CodeBuffer, details(candidates, open, &c)
	}
	return CodeAvailable, details(candidates, open, nil)
}

func allConnected(hosts []hostState) bool {
	for _, h := range hosts {
		if !h.cal.Connected {
			return false
		}
	}
	return true
}

// capped reports whether the host reached a daily or weekly limit. Host limits count
// meetings of every event; event limits count only this event.
func (ev *evaluation) capped(h HostSnapshot) (daily, weekly bool) {
	host, e := h.Participant.Host, ev.in.Event
	daily = atLimit(h.DayCount, host.MaxMeetingsPerDay) || atLimit(h.EventDayCount, e.MaxDailyBookings)
	weekly = atLimit(h.WeekCount, host.MaxMeetingsPerWeek) || atLimit(h.EventWeekCount, e.MaxWeeklyBookings)
	return daily, weekly
}

func atLimit(n int, limit *int) bool {
	return limit != nil && n >= *limit
}

// conflict finds an existing slot overlapping w, either directly or, when buffered is
// set, once the slot is padded by the event buffers. A shared slot that exactly matches
// w and still has seats does not conflict.
func (ev *evaluation) conflict(w timewindow.Interval, buffered bool) (timewindow.Interval, bool) {
	e := ev.in.Event
	for _, s := range ev.in.Slots {
		if s.Cancelled || s.BookingCount <= 0 {
			continue
		}
		iv := timewindow.Interval{Start: s.Start, End: s.End}
		if !iv.Valid() {
			continue
		}
		if e.SharesSlots() && iv.Start.Equal(w.Start) && iv.End.Equal(w.End) && s.BookingCount < seats(e) {
			continue
		}
		padded := iv
		if buffered {
			padded = iv.Expand(e.BufferBefore(), e.BufferAfter())
		}
		if padded.Overlaps(w) {
			return iv.In(ev.loc), true
		}
	}
	return timewindow.Interval{}, false
}

func seats(e model.Event) int {
	if e.MaxAttendees < 1 {
		return 1
	}
	return e.MaxAttendees
}

func details(candidates, cleared []hostState, conflict *timewindow.Interval) *Details {
	d := &Details{Conflict: conflict}
	for _, h := range candidates {
		d.CandidateHosts = append(d.CandidateHosts, h.snap.ID())
	}
	for _, h := range cleared {
		d.ClearedHosts = append(d.ClearedHosts, h.snap.ID())
	}
	return d
}
