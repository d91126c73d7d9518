// Package patterns turns weekly availability rules into concrete ranges for a date.
package patterns

import (
	"sort"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

type Status int

const (
	// StatusNoneConfigured: the host has no patterns on any weekday.
	StatusNoneConfigured Status = iota
	// StatusNoneToday: the host has patterns, none for this weekday.
	StatusNoneToday
	StatusAvailable
)

func (s Status) String() string {
	switch s {
	case StatusNoneConfigured:
		return "none_configured"
	case StatusNoneToday:
		return "none_today"
	default:
		return "available"
	}
}

// HostDay is one host's availability on one date.
type HostDay struct {
	HostID  string
	Status  Status
	Ranges  []timewindow.Interval
	Skipped int // malformed patterns ignored
}

// Contains reports whether w fits entirely inside one of the host's ranges.
// Adjacent ranges are not joined.
func (h HostDay) Contains(w timewindow.Interval) bool {
	for _, r := range h.Ranges {
		if r.Contains(w) {
			return true
		}
	}
	return false
}

// Resolve computes a host's ranges inside day, an event-local calendar day. Each pattern
// is read in its own timezone (day's location when it has none): its clock range is placed
// on every pattern-local date that overlaps day and falls on the pattern's weekday, then
// clipped to day.
func Resolve(hostID string, rules []model.Pattern, day timewindow.Interval) HostDay {
	out := HostDay{HostID: hostID, Status: StatusNoneConfigured}
	if len(rules) == 0 {
		return out
	}
	out.Status = StatusNoneToday

	for _, p := range rules {
		if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
			out.Skipped++
			continue
		}
		ranges, ok := place(p, day)
		if !ok {
			out.Skipped++
			continue
		}
		out.Ranges = append(out.Ranges, ranges...)
	}
	if len(out.Ranges) > 0 {
		out.Status = StatusAvailable
		sort.Slice(out.Ranges, func(i, j int) bool {
			if out.Ranges[i].Start.Equal(out.Ranges[j].Start) {
				return out.Ranges[i].End.Before(out.Ranges[j].End)
			}
			return out.Ranges[i].Start.Before(out.Ranges[j].Start)
		})
	}
	return out
}

// place returns p's ranges that fall inside day. ok is false for a malformed pattern.
func place(p model.Pattern, day timewindow.Interval) ([]timewindow.Interval, bool) {
	loc, err := timewindow.Location(p.Timezone, day.Start.Location())
	if err != nil {
		return nil, false
	}
	start, err := timewindow.ParseClock(p.StartTime)
	if err != nil {
		return nil, false
	}
	end, err := timewindow.ParseClock(p.EndTime)
	if err != nil {
		return nil, false
	}
	if (end.Hour*60+end.Minute)*60+end.Second <= (start.Hour*60+start.Minute)*60+start.Second {
		return nil, false
	}

	var out []timewindow.Interval
	first := timewindow.DayBounds(day.Start.In(loc)).Start
	for d := first; d.Before(day.End); d = d.AddDate(0, 0, 1) {
		if int(d.Weekday()) != p.DayOfWeek {
			continue
		}
		r := timewindow.Interval{Start: start.On(d, loc), End: end.On(d, loc)}
		if r, ok := r.Intersect(day); ok {
			out = append(out, r)
		}
	}
	return out, true
}

// Day is the resolved availability of every participating host on one date.
type Day struct {
	Hosts []HostDay
}

// AnyConfigured reports whether at least one host has a pattern on any weekday.
func (d Day) AnyConfigured() bool {
	for _, h := range d.Hosts {
		if h.Status != StatusNoneConfigured {
			return true
		}
	}
	return false
}

// AnyToday reports whether at least one host has a range on this date.
func (d Day) AnyToday() bool {
	for _, h := range d.Hosts {
		if h.Status == StatusAvailable {
			return true
		}
	}
	return false
}

// Bounds spans the earliest range start and the latest range end across hosts.
func (d Day) Bounds() (timewindow.Interval, bool) {
	var b timewindow.Interval
	found := false
	for _, h := range d.Hosts {
		for _, r := range h.Ranges {
			if !found || r.Start.Before(b.Start) {
				b.Start = r.Start
			}
			if !found || r.End.After(b.End) {
				b.End = r.End
			}
			found = true
		}
	}
	return b, found
}

// Containing returns the ids of hosts whose own ranges contain w, in host order.
func (d Day) Containing(w timewindow.Interval) []string {
	var ids []string
	for _, h := range d.Hosts {
		if h.Contains(w) {
			ids = append(ids, h.HostID)
		}
	}
	return ids
}
