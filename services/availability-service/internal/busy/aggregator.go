// Package busy reads synced calendar busy blocks for a host into a query-friendly form.
package busy

import (
	"sort"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

// Calendar is a host's busy time within a range: sorted, non-overlapping intervals.
// A disconnected calendar carries no blocks and can never clear a window.
type Calendar struct {
	HostID    string
	Connected bool
	Blocks    []timewindow.Interval
}

// Aggregate keeps the blocks of hostID that intersect rng and merges overlapping
// or touching ones.
func Aggregate(hostID string, connected bool, blocks []model.BusyBlock, rng timewindow.Interval) Calendar {
	cal := Calendar{HostID: hostID, Connected: connected}
	if !connected {
		return cal
	}

	in := make([]timewindow.Interval, 0, len(blocks))
	for _, b := range blocks {
		if b.HostID != "" && b.HostID != hostID {
			continue
		}
		iv := timewindow.Interval{Start: b.Start, End: b.End}
		if !iv.Valid() || !iv.Overlaps(rng) {
			continue
		}
		in = append(in, iv)
	}
	cal.Blocks = merge(in)
	return cal
}

func merge(in []timewindow.Interval) []timewindow.Interval {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := make([]timewindow.Interval, 0, len(in))
	for _, cur := range in {
		if len(out) == 0 {
			out = append(out, cur)
			continue
		}
		last := &out[len(out)-1]
		if cur.Start.After(last.End) {
			out = append(out, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}
	return out
}

// Blocked reports whether w overlaps any busy block.
func (c Calendar) Blocked(w timewindow.Interval) bool {
	_, ok := c.firstConflict(w)
	return ok
}

// Conflict returns the first busy block overlapping w.
func (c Calendar) Conflict(w timewindow.Interval) (timewindow.Interval, bool) {
	return c.firstConflict(w)
}

func (c Calendar) firstConflict(w timewindow.Interval) (timewindow.Interval, bool) {
	// Blocks are disjoint and sorted, so their ends are sorted too.
	i := sort.Search(len(c.Blocks), func(i int) bool { return c.Blocks[i].End.After(w.Start) })
	if i < len(c.Blocks) && c.Blocks[i].Start.Before(w.End) {
		return c.Blocks[i], true
	}
	return timewindow.Interval{}, false
}

// Clears reports whether the calendar positively shows w as free.
func (c Calendar) Clears(w timewindow.Interval) bool {
	return c.Connected && !c.Blocked(w)
}
