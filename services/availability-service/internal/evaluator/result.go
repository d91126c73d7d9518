package evaluator

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

// Result is either a DayLevelResult or a SlotEnumerationResult.
type Result interface {
	isResult()
	ResultDate() string
}

// DayLevelResult is returned when one code answers for the whole day and no windows are
// materialized.
type DayLevelResult struct {
	Date             string
	Timezone         string
	Code             Code
	Reason           string
	UnavailableHosts []string
}

// SlotEnumerationResult classifies every candidate window of the day.
type SlotEnumerationResult struct {
	Date             string
	Timezone         string
	Slots            []SlotResult
	Summary          Summary
	UnavailableHosts []string
}

func (DayLevelResult) isResult()        {}
func (SlotEnumerationResult) isResult() {}

func (r DayLevelResult) ResultDate() string        { return r.Date }
func (r SlotEnumerationResult) ResultDate() string { return r.Date }

// SlotResult is one classified window.
type SlotResult struct {
	Window  timewindow.Interval
	Code    Code
	Reason  string
	Details *Details
}

// Details records which hosts were considered for a window.
type Details struct {
	// CandidateHosts have a pattern range containing the window.
	CandidateHosts []string
	// ClearedHosts passed the calendar and cap checks.
	ClearedHosts []string
	// Conflict is the existing slot behind BOOKED or BUFFER.
	Conflict *timewindow.Interval
}

// Available reports whether the window can be booked.
func (s SlotResult) Available() bool {
	return s.Code == CodeAvailable
}

// Summary aggregates an enumeration.
type Summary struct {
	Total             int
	Available         int
	Blocked           int
	Counts            map[Code]int
	TopBlockingReason Code
}

func summarize(slots []SlotResult) Summary {
	s := Summary{Total: len(slots), Counts: map[Code]int{}}
	for _, sl := range slots {
		s.Counts[sl.Code]++
		if sl.Available() {
			s.Available++
		} else {
			s.Blocked++
		}
	}
	best := 0
	for _, c := range order {
		if c == CodeAvailable {
			continue
		}
		if n := s.Counts[c]; n > best {
			best = n
			s.TopBlockingReason = c
		}
	}
	return s
}

// AvailableWindows projects the AVAILABLE windows of the enumeration.
func (r SlotEnumerationResult) AvailableWindows() []timewindow.Interval {
	var out []timewindow.Interval
	for _, s := range r.Slots {
		if s.Available() {
			out = append(out, s.Window)
		}
	}
	return out
}

// Windows returns the AVAILABLE windows of any result; day-level results have none.
func Windows(r Result) []timewindow.Interval {
	if e, ok := r.(SlotEnumerationResult); ok {
		return e.AvailableWindows()
	}
	return nil
}

func dateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}
