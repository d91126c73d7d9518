package patterns

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

func monday(loc *time.Location) timewindow.Interval {
	return timewindow.DayBounds(time.Date(2026, 3, 2, 0, 0, 0, 0, loc))
}

func zones(t *testing.T) (la, tokyo *time.Location) {
	t.Helper()
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tokyo, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return la, tokyo
}

func TestResolveStatuses(t *testing.T) {
	d := Resolve("h1", nil, monday(time.UTC))
	if d.Status != StatusNoneConfigured {
		t.Fatalf("expected none_configured, got %s", d.Status)
	}

	tuesdayOnly := []model.Pattern{{HostID: "h1", DayOfWeek: 2, StartTime: "09:00", EndTime: "17:00"}}
	d = Resolve("h1", tuesdayOnly, monday(time.UTC))
	if d.Status != StatusNoneToday || len(d.Ranges) != 0 {
		t.Fatalf("expected none_today, got %s with %d ranges", d.Status, len(d.Ranges))
	}
}

func TestResolveSortsAndSkipsMalformed(t *testing.T) {
	rules := []model.Pattern{
		{DayOfWeek: 1, StartTime: "13:00", EndTime: "17:00"},
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: 1, StartTime: "18:00", EndTime: "17:00"},
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", Timezone: "Not/AZone"},
		{DayOfWeek: 9, StartTime: "09:00", EndTime: "10:00"},
	}
	d := Resolve("h1", rules, monday(time.UTC))
	if d.Status != StatusAvailable || len(d.Ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d (%s)", len(d.Ranges), d.Status)
	}
	if d.Ranges[0].Start.Hour() != 9 || d.Ranges[1].Start.Hour() != 13 {
		t.Fatalf("expected ranges sorted by start, got %v", d.Ranges)
	}
	if d.Skipped != 3 {
		t.Fatalf("expected 3 skipped patterns, got %d", d.Skipped)
	}
}

func TestContainsRequiresSingleRange(t *testing.T) {
	rules := []model.Pattern{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: 1, StartTime: "12:00", EndTime: "15:00"},
	}
	d := Resolve("h1", rules, monday(time.UTC))
	straddle := timewindow.Interval{
		Start: time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC),
	}
	if d.Contains(straddle) {
		t.Fatal("a window across two adjacent ranges must not be contained")
	}
}

func TestPatternWeekdayIsReadInPatternTimezone(t *testing.T) {
	la, tokyo := zones(t)
	rules := []model.Pattern{{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", Timezone: "Asia/Tokyo"}}

	// Monday 09:00 Tokyo is Sunday 16:00 in Los Angeles.
	sunday := timewindow.DayBounds(time.Date(2026, 3, 1, 0, 0, 0, 0, la))
	d := Resolve("h1", rules, sunday)
	if d.Status != StatusAvailable || len(d.Ranges) != 1 {
		t.Fatalf("expected one range on the LA Sunday, got %s with %d ranges", d.Status, len(d.Ranges))
	}
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, tokyo)
	if !d.Ranges[0].Start.Equal(want) || d.Ranges[0].Start.In(la).Hour() != 16 {
		t.Fatalf("expected %s, got %s", want, d.Ranges[0].Start)
	}

	d = Resolve("h1", rules, monday(la))
	if d.Status != StatusNoneToday || len(d.Ranges) != 0 {
		t.Fatalf("expected no range on the LA Monday, got %s with %v", d.Status, d.Ranges)
	}
}

func TestRangeCrossingMidnightIsClippedToDay(t *testing.T) {
	la, _ := zones(t)
	// Monday 15:00-22:00 Tokyo runs from Sunday 22:00 to Monday 05:00 in Los Angeles.
	rules := []model.Pattern{{DayOfWeek: 1, StartTime: "15:00", EndTime: "22:00", Timezone: "Asia/Tokyo"}}

	sunday := timewindow.DayBounds(time.Date(2026, 3, 1, 0, 0, 0, 0, la))
	d := Resolve("h1", rules, sunday)
	if len(d.Ranges) != 1 {
		t.Fatalf("expected one range, got %v", d.Ranges)
	}
	r := d.Ranges[0].In(la)
	if r.Start.Hour() != 22 || !r.End.Equal(sunday.End) {
		t.Fatalf("expected 22:00 to midnight, got %s", r)
	}

	mon := monday(la)
	d = Resolve("h1", rules, mon)
	if len(d.Ranges) != 1 {
		t.Fatalf("expected one range, got %v", d.Ranges)
	}
	r = d.Ranges[0].In(la)
	if !r.Start.Equal(mon.Start) || r.End.Hour() != 5 {
		t.Fatalf("expected midnight to 05:00, got %s", r)
	}
}

func TestDayAggregates(t *testing.T) {
	day := monday(time.UTC)
	a := Resolve("a", []model.Pattern{{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"}}, day)
	b := Resolve("b", []model.Pattern{{DayOfWeek: 1, StartTime: "11:00", EndTime: "18:00"}}, day)
	c := Resolve("c", nil, day)
	all := Day{Hosts: []HostDay{a, b, c}}

	if !all.AnyConfigured() || !all.AnyToday() {
		t.Fatal("expected configured and available")
	}
	bounds, ok := all.Bounds()
	if !ok || bounds.Start.Hour() != 9 || bounds.End.Hour() != 18 {
		t.Fatalf("unexpected bounds %v", bounds)
	}
	w := timewindow.Interval{Start: day.Start.Add(11 * time.Hour), End: day.Start.Add(11*time.Hour + 30*time.Minute)}
	ids := all.Containing(w)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected a and b, got %v", ids)
	}
	if (Day{Hosts: []HostDay{c}}).AnyConfigured() {
		t.Fatal("expected no configured host")
	}
}
