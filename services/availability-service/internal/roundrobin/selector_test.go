package roundrobin

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

func part(id string, role model.Role, weight int) model.Participant {
	return model.Participant{Host: model.Host{ID: id}, Role: role, Weight: weight}
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPriorityFewestThenWeight(t *testing.T) {
	ps := []model.Participant{part("a", model.RoleOwner, 1), part("b", model.RoleHost, 4), part("c", model.RoleHost, 2)}
	stats := []model.AssignmentStat{{HostID: "a", Count: 1}, {HostID: "b", Count: 1}, {HostID: "c", Count: 3}}

	got, err := New(StrategyPriority).Select(ps, []string{"a", "b", "c"}, stats)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Host.ID != "b" {
		t.Fatalf("expected b (tie on count, higher weight), got %s", got.Host.ID)
	}
}

func TestCycleLongestSinceLastAssigned(t *testing.T) {
	ps := []model.Participant{part("a", model.RoleHost, 5), part("b", model.RoleHost, 1), part("c", model.RoleHost, 1)}
	stats := []model.AssignmentStat{
		{HostID: "a", Count: 2, LastAssignedAt: t0},
		{HostID: "b", Count: 2, LastAssignedAt: t0.Add(-time.Hour)},
		{HostID: "c", Count: 2, LastAssignedAt: t0.Add(time.Hour)},
	}
	got, err := New(StrategyCycle).Select(ps, []string{"a", "b", "c"}, stats)
	if err != nil || got.Host.ID != "b" {
		t.Fatalf("expected b, got %s (%v)", got.Host.ID, err)
	}

	// Never assigned goes first.
	ps = append(ps, part("d", model.RoleHost, 1))
	stats = append(stats, model.AssignmentStat{HostID: "d", Count: 2})
	got, _ = New(StrategyCycle).Select(ps, []string{"a", "b", "c", "d"}, stats)
	if got.Host.ID != "d" {
		t.Fatalf("expected d, got %s", got.Host.ID)
	}
}

func TestWeightedRatio(t *testing.T) {
	ps := []model.Participant{part("a", model.RoleHost, 1), part("b", model.RoleHost, 3)}
	stats := []model.AssignmentStat{{HostID: "a", Count: 1}, {HostID: "b", Count: 2}}
	got, err := New(StrategyWeighted).Select(ps, []string{"a", "b"}, stats)
	if err != nil || got.Host.ID != "b" {
		t.Fatalf("expected b (2/3 < 1/1), got %s (%v)", got.Host.ID, err)
	}
}

func TestTiesKeepInsertionOrder(t *testing.T) {
	ps := []model.Participant{part("x", model.RoleHost, 2), part("y", model.RoleHost, 2)}
	for _, s := range []Strategy{StrategyPriority, StrategyCycle, StrategyWeighted} {
		got, err := New(s).Select(ps, []string{"y", "x"}, nil)
		if err != nil || got.Host.ID != "x" {
			t.Fatalf("%s: expected x, got %s (%v)", s, got.Host.ID, err)
		}
	}
}

func TestBackupAndUnclearedExcluded(t *testing.T) {
	ps := []model.Participant{part("busy", model.RoleOwner, 5), part("spare", model.RoleBackup, 5), part("free", model.RoleHost, 1)}
	stats := []model.AssignmentStat{{HostID: "busy", Count: 0}, {HostID: "spare", Count: 0}, {HostID: "free", Count: 10}}

	for _, s := range []Strategy{StrategyPriority, StrategyCycle, StrategyWeighted} {
		got, err := New(s).Select(ps, []string{"spare", "free"}, stats)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if got.Host.ID != "free" {
			t.Fatalf("%s: expected free, got %s", s, got.Host.ID)
		}
	}

	_, err := New(StrategyPriority).Select(ps, []string{"spare"}, stats)
	if !errors.Is(err, ErrNoEligibleHost) {
		t.Fatalf("expected ErrNoEligibleHost, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy(""); err != nil || s != StrategyPriority {
		t.Fatalf("expected default priority, got %q (%v)", s, err)
	}
	if s, err := ParseStrategy(" Cycle "); err != nil || s != StrategyCycle {
		t.Fatalf("expected cycle, got %q (%v)", s, err)
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
