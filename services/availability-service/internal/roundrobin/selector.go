// Package roundrobin picks the host that owns a booking of a multi-host event.
package roundrobin

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
)

var ErrNoEligibleHost = errors.New("no eligible host")

type Strategy string

const (
	// StrategyPriority: fewest assignments, then higher weight, then longest since the
	// last assignment.
	StrategyPriority Strategy = "priority"
	// StrategyCycle: fewest assignments, then longest since the last assignment.
	StrategyCycle Strategy = "cycle"
	// StrategyWeighted: lowest assignments per unit of weight, then higher weight.
	StrategyWeighted Strategy = "weighted"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPriority:
		return StrategyPriority, nil
	case StrategyCycle:
		return StrategyCycle, nil
	case StrategyWeighted:
		return StrategyWeighted, nil
	default:
		return "", fmt.Errorf("unknown round robin strategy %q", s)
	}
}

type Selector struct {
	Strategy Strategy
}

func New(strategy Strategy) Selector {
	if strategy == "" {
		strategy = StrategyPriority
	}
	return Selector{Strategy: strategy}
}

type candidate struct {
	p     model.Participant
	stat  model.AssignmentStat
	index int
}

// Select chooses among participants that rotate and are listed in cleared. Hosts not
// cleared for the window are removed before ranking, so history never pulls in a host
// that cannot take the booking. Ties that survive the strategy go to the earlier
// participant.
func (s Selector) Select(participants []model.Participant, cleared []string, stats []model.AssignmentStat) (model.Participant, error) {
	ok := make(map[string]bool, len(cleared))
	for _, id := range cleared {
		ok[id] = true
	}
	byHost := make(map[string]model.AssignmentStat, len(stats))
	for _, st := range stats {
		byHost[st.HostID] = st
	}

	var pool []candidate
	for i, p := range participants {
		if !p.Role.Rotates() || !ok[p.Host.ID] {
			continue
		}
		pool = append(pool, candidate{p: p, stat: byHost[p.Host.ID], index: i})
	}
	if len(pool) == 0 {
		return model.Participant{}, ErrNoEligibleHost
	}

	less := s.less()
	sort.SliceStable(pool, func(i, j int) bool { return less(pool[i], pool[j]) })
	return pool[0].p, nil
}

func (s Selector) less() func(a, b candidate) bool {
	switch s.Strategy {
	case StrategyCycle:
		return func(a, b candidate) bool {
			if a.stat.Count != b.stat.Count {
				return a.stat.Count < b.stat.Count
			}
			if c := compareLast(a, b); c != 0 {
				return c < 0
			}
			return a.index < b.index
		}
	case StrategyWeighted:
		return func(a, b candidate) bool {
			// a.count/a.weight < b.count/b.weight without division.
			l := a.stat.Count * b.p.PriorityWeight()
			r := b.stat.Count * a.p.PriorityWeight()
			if l != r {
				return l < r
			}
			if a.p.PriorityWeight() != b.p.PriorityWeight() {
				return a.p.PriorityWeight() > b.p.PriorityWeight()
			}
			return a.index < b.index
		}
	default:
		return func(a, b candidate) bool {
			if a.stat.Count != b.stat.Count {
				return a.stat.Count < b.stat.Count
			}
			if a.p.PriorityWeight() != b.p.PriorityWeight() {
				return a.p.PriorityWeight() > b.p.PriorityWeight()
			}
			if c := compareLast(a, b); c != 0 {
				return c < 0
			}
			return a.index < b.index
		}
	}
}

// compareLast orders the host assigned longer ago first. Never assigned counts as oldest.
func compareLast(a, b candidate) int {
	at, bt := a.stat.LastAssignedAt, b.stat.LastAssignedAt
	switch {
	case at.Equal(bt):
		return 0
	case at.IsZero():
		return -1
	case bt.IsZero():
		return 1
	case at.Before(bt):
		return -1
	default:
		return 1
	}
}
