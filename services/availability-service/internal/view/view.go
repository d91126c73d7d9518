// Package view renders engine results in the availabilityv1 wire form.
package view

import (
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

func stamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func Evaluation(eventID string, r evaluator.Result) availabilityv1.Evaluation {
	switch res := r.(type) {
	case evaluator.DayLevelResult:
		return availabilityv1.Evaluation{
			Kind:             availabilityv1.KindDay,
			EventID:          eventID,
			Date:             res.Date,
			Timezone:         res.Timezone,
			Code:             string(res.Code),
			Reason:           res.Reason,
			Slots:            []availabilityv1.Slot{},
			UnavailableHosts: res.UnavailableHosts,
		}
	case evaluator.SlotEnumerationResult:
		out := availabilityv1.Evaluation{
			Kind:             availabilityv1.KindSlots,
			EventID:          eventID,
			Date:             res.Date,
			Timezone:         res.Timezone,
			Slots:            make([]availabilityv1.Slot, 0, len(res.Slots)),
			Summary:          summary(res.Summary),
			UnavailableHosts: res.UnavailableHosts,
		}
		for _, s := range res.Slots {
			out.Slots = append(out.Slots, Slot(s))
		}
		return out
	default:
		return availabilityv1.Evaluation{EventID: eventID, Slots: []availabilityv1.Slot{}}
	}
}

func Slot(s evaluator.SlotResult) availabilityv1.Slot {
	out := availabilityv1.Slot{
		StartTime: stamp(s.Window.Start),
		EndTime:   stamp(s.Window.End),
		Code:      string(s.Code),
		Reason:    s.Reason,
	}
	if d := s.Details; d != nil && (len(d.CandidateHosts) > 0 || d.Conflict != nil) {
		out.Details = &availabilityv1.Details{CandidateHosts: d.CandidateHosts, ClearedHosts: d.ClearedHosts}
		if d.Conflict != nil {
			out.Details.ConflictStart = stamp(d.Conflict.Start)
			out.Details.ConflictEnd = stamp(d.Conflict.End)
		}
	}
	return out
}

func summary(s evaluator.Summary) *availabilityv1.Summary {
	out := &availabilityv1.Summary{
		Total:             s.Total,
		Available:         s.Available,
		Blocked:           s.Blocked,
		Counts:            make(map[string]int, len(s.Counts)),
		TopBlockingReason: string(s.TopBlockingReason),
	}
	for c, n := range s.Counts {
		out.Counts[string(c)] = n
	}
	return out
}

func Windows(eventID, from, to string, ws []timewindow.Interval) availabilityv1.SlotList {
	out := availabilityv1.SlotList{EventID: eventID, From: from, To: to, Slots: make([]availabilityv1.Window, 0, len(ws))}
	for _, w := range ws {
		out.Slots = append(out.Slots, availabilityv1.Window{StartTime: stamp(w.Start), EndTime: stamp(w.End)})
	}
	return out
}

func Selected(eventID string, p model.Participant) availabilityv1.SelectedHost {
	return availabilityv1.SelectedHost{EventID: eventID, HostID: p.Host.ID, Role: string(p.Role), Weight: p.PriorityWeight()}
}

// ParseTime accepts RFC 3339 timestamps.
func ParseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}
