// Package timewindow holds the interval arithmetic shared by the availability engine.
// Intervals are half-open: [Start, End).
package timewindow

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether [i.Start,i.End) and [o.Start,o.End) share any instant.
// Touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Intersect returns the part of i that lies inside o. ok is false when nothing is left.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	out := i
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, out.Valid()
}

// Expand pads the interval by before and after. Negative padding is ignored.
func (i Interval) Expand(before, after time.Duration) Interval {
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	return Interval{Start: i.Start.Add(-before), End: i.End.Add(after)}
}

func (i Interval) In(loc *time.Location) Interval {
	return Interval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

func (i Interval) String() string {
	return i.Start.Format(time.RFC3339) + "/" + i.End.Format(time.RFC3339)
}

// Candidates yields [t, t+duration) for t = first, first+step, ... while the window ends
// at or before last. The sequence holds no state, so every range over it starts again at first.
func Candidates(first, last time.Time, duration, step time.Duration) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if duration <= 0 || step <= 0 || !last.After(first) {
			return
		}
		for t := first; !t.Add(duration).After(last); t = t.Add(step) {
			if !yield(Interval{Start: t, End: t.Add(duration)}) {
				return
			}
		}
	}
}

// ParseDate parses a YYYY-MM-DD calendar date as local midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(date), loc)
}

// DayBounds is the local calendar day containing t, from midnight to the next midnight.
// Days across a DST change are 23 or 25 hours long.
func DayBounds(t time.Time) Interval {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekBounds is the Sunday-anchored local week containing t.
func WeekBounds(t time.Time) Interval {
	day := DayBounds(t).Start
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return Interval{Start: start, End: start.AddDate(0, 0, 7)}
}

// Clock is a local wall-clock time of day.
type Clock struct {
	Hour, Minute, Second int
}

// ParseClock accepts "HH:MM" or "HH:MM:SS". "24:00" denotes the end of the day.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Clock{}, fmt.Errorf("invalid clock %q", s)
		}
		vals[i] = n
	}
	c := Clock{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if c.Minute > 59 || c.Second > 59 || c.Hour > 24 || (c.Hour == 24 && (c.Minute > 0 || c.Second > 0)) {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	return c, nil
}

// On places the clock on the calendar date of day, in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, c.Second, 0, loc)
}

// FloorHour truncates t to the start of its local hour.
func FloorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// CeilHour rounds t up to the next local hour unless it already sits on one.
func CeilHour(t time.Time) time.Time {
	f := FloorHour(t)
	if f.Equal(t) {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
}
