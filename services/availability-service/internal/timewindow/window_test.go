package timewindow

import (
	"slices"
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func TestOverlapsHalfOpen(t *testing.T) {
	booked := Interval{Start: at(14, 0), End: at(15, 0)}

	if (Interval{Start: at(15, 0), End: at(15, 30)}).Overlaps(booked) {
		t.Fatal("adjacent intervals must not overlap")
	}
	if !(Interval{Start: at(14, 30), End: at(15, 0)}).Overlaps(booked) {
		t.Fatal("expected overlap for 14:30-15:00")
	}
	if !booked.Expand(15*time.Minute, 15*time.Minute).Overlaps(Interval{Start: at(15, 0), End: at(15, 30)}) {
		t.Fatal("expected buffered interval to reach the adjacent window")
	}
}

func TestContains(t *testing.T) {
	day := Interval{Start: at(9, 0), End: at(17, 0)}
	if !day.Contains(Interval{Start: at(9, 0), End: at(9, 30)}) {
		t.Fatal("expected window at range start to be contained")
	}
	if !day.Contains(Interval{Start: at(16, 30), End: at(17, 0)}) {
		t.Fatal("expected window ending at range end to be contained")
	}
	if day.Contains(Interval{Start: at(16, 45), End: at(17, 15)}) {
		t.Fatal("window spilling past range end must not be contained")
	}
}

func TestCandidatesRestartable(t *testing.T) {
	seq := Candidates(at(9, 0), at(10, 0), 30*time.Minute, 15*time.Minute)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(first))
	}
	if !first[2].Start.Equal(at(9, 30)) || !first[2].End.Equal(at(10, 0)) {
		t.Fatalf("unexpected last window %s", first[2])
	}
	if !slices.Equal(first, second) {
		t.Fatal("expected ranging twice to yield the same windows")
	}

	var n int
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected early stop, got %d", n)
	}
}

func TestCandidatesDegenerate(t *testing.T) {
	if got := slices.Collect(Candidates(at(9, 0), at(9, 20), 30*time.Minute, 30*time.Minute)); len(got) != 0 {
		t.Fatalf("expected no windows when duration exceeds range, got %d", len(got))
	}
	if got := slices.Collect(Candidates(at(9, 0), at(10, 0), 30*time.Minute, 0)); len(got) != 0 {
		t.Fatalf("expected no windows for zero step, got %d", len(got))
	}
}

func TestDayAndWeekBoundsAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2026-03-08 is the US spring-forward Sunday.
	day, err := ParseDate("2026-03-08", ny)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	b := DayBounds(day)
	if got := b.End.Sub(b.Start); got != 23*time.Hour {
		t.Fatalf("expected 23h day, got %s", got)
	}

	wed, _ := ParseDate("2026-03-11", ny)
	w := WeekBounds(wed)
	if w.Start.Weekday() != time.Sunday || w.Start.Day() != 8 {
		t.Fatalf("expected week to start Sunday 8th, got %s", w.Start)
	}
	if w.End.Day() != 15 {
		t.Fatalf("expected week to end Sunday 15th, got %s", w.End)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("24:00")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	end := c.On(at(0, 0), time.UTC)
	if !end.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected next midnight, got %s", end)
	}
	for _, bad := range []string{"9", "25:00", "24:30", "10:75", "ab:cd"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFloorCeilHour(t *testing.T) {
	if !FloorHour(at(9, 20)).Equal(at(9, 0)) {
		t.Fatal("floor")
	}
	if !CeilHour(at(16, 40)).Equal(at(17, 0)) {
		t.Fatal("ceil")
	}
	if !CeilHour(at(17, 0)).Equal(at(17, 0)) {
		t.Fatal("ceil on the hour")
	}
}
