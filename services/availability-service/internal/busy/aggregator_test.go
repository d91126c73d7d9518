package busy

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func window(h, m int, d time.Duration) timewindow.Interval {
	return timewindow.Interval{Start: at(h, m), End: at(h, m).Add(d)}
}

func TestAggregateMergesAndFilters(t *testing.T) {
	day := timewindow.Interval{Start: at(0, 0), End: at(0, 0).Add(24 * time.Hour)}
	blocks := []model.BusyBlock{
		{HostID: "h1", Start: at(11, 0), End: at(12, 0)},
		{HostID: "h1", Start: at(10, 0), End: at(10, 30)},
		{HostID: "h1", Start: at(10, 30), End: at(11, 15)},
		{HostID: "h2", Start: at(8, 0), End: at(9, 0)},
		{HostID: "h1", Start: at(0, 0).Add(-2 * time.Hour), End: at(0, 0).Add(-time.Hour)},
		{HostID: "h1", Start: at(13, 0), End: at(13, 0)},
	}
	cal := Aggregate("h1", true, blocks, day)
	if len(cal.Blocks) != 1 {
		t.Fatalf("expected one merged block, got %v", cal.Blocks)
	}
	if !cal.Blocks[0].Start.Equal(at(10, 0)) || !cal.Blocks[0].End.Equal(at(12, 0)) {
		t.Fatalf("unexpected merged block %s", cal.Blocks[0])
	}
}

func TestBlockedHalfOpen(t *testing.T) {
	day := timewindow.Interval{Start: at(0, 0), End: at(23, 59)}
	cal := Aggregate("h1", true, []model.BusyBlock{{Start: at(10, 0), End: at(10, 30)}}, day)

	if !cal.Blocked(window(10, 0, 30*time.Minute)) {
		t.Fatal("expected 10:00 to be blocked")
	}
	if cal.Blocked(window(9, 30, 30*time.Minute)) {
		t.Fatal("expected 09:30 (touching) to be free")
	}
	if cal.Blocked(window(10, 30, 30*time.Minute)) {
		t.Fatal("expected 10:30 (touching) to be free")
	}
	if !cal.Clears(window(9, 30, 30*time.Minute)) {
		t.Fatal("expected connected calendar to clear a free window")
	}
}

func TestDisconnectedNeverClears(t *testing.T) {
	cal := Aggregate("h1", false, []model.BusyBlock{{Start: at(10, 0), End: at(10, 30)}}, window(0, 0, 24*time.Hour))
	if len(cal.Blocks) != 0 {
		t.Fatal("expected no blocks for a disconnected calendar")
	}
	if cal.Clears(window(9, 0, 30*time.Minute)) {
		t.Fatal("disconnected calendar must not clear")
	}
}
