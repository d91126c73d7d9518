package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
)

func TestRenderDayLevel(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, availabilityv1.Evaluation{
		Kind:     availabilityv1.KindDay,
		EventID:  "ev-1",
		Date:     "2026-03-07",
		Timezone: "UTC",
		Code:     "OUTSIDEHOURS",
		Reason:   "No availability configured for this day",
	})
	out := buf.String()
	if !strings.Contains(out, "OUTSIDEHOURS: No availability configured for this day") {
		t.Fatalf("missing day-level line:\n%s", out)
	}
	if strings.Contains(out, "START") {
		t.Fatalf("day-level output should not print a table:\n%s", out)
	}
}

func TestRenderSlots(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, availabilityv1.Evaluation{
		Kind:     availabilityv1.KindSlots,
		EventID:  "ev-1",
		Date:     "2026-03-02",
		Timezone: "UTC",
		Slots: []availabilityv1.Slot{
			{StartTime: "2026-03-02T09:00:00Z", EndTime: "2026-03-02T09:30:00Z", Code: "BOOKED", Reason: "Slot already booked"},
			{StartTime: "2026-03-02T09:30:00Z", EndTime: "2026-03-02T10:00:00Z", Code: "AVAILABLE", Reason: "Available"},
		},
		Summary: &availabilityv1.Summary{
			Total: 2, Available: 1, Blocked: 1,
			Counts:            map[string]int{"BOOKED": 1, "AVAILABLE": 1},
			TopBlockingReason: "BOOKED",
		},
		UnavailableHosts: []string{"h2"},
	})
	out := buf.String()
	for _, want := range []string{
		"START",
		"2026-03-02T09:00:00Z",
		"BOOKED",
		"2 windows: 1 available, 1 blocked (mostly BOOKED)",
		"hosts treated as busy (data unavailable): h2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	avail, booked := strings.Index(out, "AVAILABLE      1"), strings.Index(out, "BOOKED         1")
	if avail < 0 || booked < 0 || avail > booked {
		t.Fatalf("expected counts sorted by code:\n%s", out)
	}
}
