// Package engine loads what an evaluation needs from the store and runs the evaluator
// and the round-robin selector over it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/roundrobin"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

type Config struct {
	DefaultTimezone string
	FetchTimeout    time.Duration
	MaxListingDays  int
	Strategy        roundrobin.Strategy
}

type Engine struct {
	store    Store
	cfg      Config
	selector roundrobin.Selector
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(store Store, cfg Config, logger *slog.Logger) *Engine {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}
	if cfg.MaxListingDays <= 0 {
		cfg.MaxListingDays = 31
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		cfg:      cfg,
		selector: roundrobin.New(cfg.Strategy),
		logger:   logger,
		tracer:   otel.Tracer("slotengine/availability-service/engine"),
		now:      time.Now,
	}
}

// WithClock replaces the wall clock used as "now".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate classifies every candidate window of eventID on date (YYYY-MM-DD, event timezone).
func (e *Engine) Evaluate(ctx context.Context, eventID, date string) (res evaluator.Result, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.Evaluate", trace.WithAttributes(
		attribute.String("event_id", eventID),
		attribute.String("date", date),
	))
	defer func() { otelx.EndSpan(span, err) }()

	ev, hosts, err := e.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	day, err := e.parseDate(ev, date)
	if err != nil {
		return nil, err
	}
	in, err := e.snapshot(ctx, ev, hosts, day, nil)
	if err != nil {
		return nil, err
	}
	res = evaluator.Evaluate(in)
	if enum, ok := res.(evaluator.SlotEnumerationResult); ok {
		span.SetAttributes(attribute.Int("windows", enum.Summary.Total), attribute.Int("available", enum.Summary.Available))
	}
	return res, nil
}

// Explain classifies the single window of event duration starting at start.
func (e *Engine) Explain(ctx context.Context, eventID string, start time.Time) (res evaluator.SlotResult, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.Explain", trace.WithAttributes(
		attribute.String("event_id", eventID),
		attribute.String("start_time", start.UTC().Format(time.RFC3339)),
	))
	defer func() { otelx.EndSpan(span, err) }()

	if start.IsZero() {
		return evaluator.SlotResult{}, fmt.Errorf("%w: start_time is required", ErrInvalidInput)
	}
	ev, hosts, err := e.load(ctx, eventID)
	if err != nil {
		return evaluator.SlotResult{}, err
	}
	w := timewindow.Interval{Start: start, End: start.Add(ev.Duration())}
	if !w.Valid() {
		return evaluator.SlotResult{}, fmt.Errorf("%w: event %s has no duration", ErrInvalidEvent, ev.ID)
	}
	in, err := e.snapshot(ctx, ev, hosts, start.In(e.location(ev)), nil)
	if err != nil {
		return evaluator.SlotResult{}, err
	}
	return evaluator.Classify(in, w), nil
}

// ListAvailableSlots returns the AVAILABLE windows for every date in [from, to].
func (e *Engine) ListAvailableSlots(ctx context.Context, eventID, from, to string) (out []timewindow.Interval, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.ListAvailableSlots", trace.WithAttributes(
		attribute.String("event_id", eventID),
		attribute.String("from", from),
		attribute.String("to", to),
	))
	defer func() { otelx.EndSpan(span, err) }()

	ev, hosts, err := e.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	first, err := e.parseDate(ev, from)
	if err != nil {
		return nil, err
	}
	last, err := e.parseDate(ev, to)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidInput)
	}
	days := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days > e.cfg.MaxListingDays {
		return nil, fmt.Errorf("%w: range spans %d days, at most %d allowed", ErrInvalidInput, days, e.cfg.MaxListingDays)
	}

	out = []timewindow.Interval{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		in, err := e.snapshot(ctx, ev, hosts, d, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, evaluator.Windows(evaluator.Evaluate(in))...)
	}
	span.SetAttributes(attribute.Int("available", len(out)))
	return out, nil
}

// SelectRoundRobinHost picks the host that takes a booking of [start, end). Only hosts
// that clear the window are ranked.
func (e *Engine) SelectRoundRobinHost(ctx context.Context, eventID string, start, end time.Time) (host model.Participant, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.SelectHost", trace.WithAttributes(
		attribute.String("event_id", eventID),
		attribute.String("start_time", start.UTC().Format(time.RFC3339)),
	))
	defer func() { otelx.EndSpan(span, err) }()

	w := timewindow.Interval{Start: start, End: end}
	if !w.Valid() {
		return model.Participant{}, fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}
	ev, hosts, err := e.load(ctx, eventID)
	if err != nil {
		return model.Participant{}, err
	}
	if ev.MeetingType != model.MeetingRoundRobin {
		return model.Participant{}, fmt.Errorf("%w: event %s is not round robin", ErrInvalidEvent, ev.ID)
	}

	var stats []model.AssignmentStat
	in, err := e.snapshot(ctx, ev, hosts, start.In(e.location(ev)), &stats)
	if err != nil {
		return model.Participant{}, err
	}
	res := evaluator.Classify(in, w)
	if !res.Available() {
		return model.Participant{}, fmt.Errorf("%w: window is %s", ErrNoEligibleHost, res.Code)
	}
	host, err = e.selector.Select(hosts, res.Details.ClearedHosts, stats)
	if err != nil {
		return model.Participant{}, err
	}
	span.SetAttributes(attribute.String("host_id", host.Host.ID))
	return host, nil
}

func (e *Engine) location(ev model.Event) *time.Location {
	return evaluator.Input{Event: ev, DefaultTimezone: e.cfg.DefaultTimezone}.Location()
}

func (e *Engine) parseDate(ev model.Event, date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	d, err := timewindow.ParseDate(date, e.location(ev))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return d, nil
}

// load reads the event and the hosts it is evaluated for. Single-host events use the
// owner. A round-robin event needs at least two rotating hosts; none at all is left to
// the evaluator to report.
func (e *Engine) load(ctx context.Context, eventID string) (model.Event, []model.Participant, error) {
	if eventID == "" {
		return model.Event{}, nil, fmt.Errorf("%w: event_id is required", ErrInvalidInput)
	}
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	ev, err := e.store.GetEvent(fctx, eventID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Event{}, nil, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("%w: load event: %v", ErrCannotEvaluate, err)
	}
	participants, err := e.store.ListParticipants(fctx, eventID)
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("%w: load participants: %v", ErrCannotEvaluate, err)
	}

	if !ev.MultiHost() {
		owner, err := e.owner(fctx, ev, participants)
		if err != nil {
			return model.Event{}, nil, err
		}
		return ev, owner, nil
	}

	var rotation []model.Participant
	for _, p := range participants {
		if p.Role.Rotates() {
			rotation = append(rotation, p)
		}
	}
	if ev.MeetingType == model.MeetingRoundRobin && len(rotation) == 1 {
		return model.Event{}, nil, fmt.Errorf("%w: round robin event %s needs at least two hosts", ErrInvalidEvent, ev.ID)
	}
	return ev, rotation, nil
}

func (e *Engine) owner(ctx context.Context, ev model.Event, participants []model.Participant) ([]model.Participant, error) {
	if ev.OwnerHostID == "" {
		return nil, nil
	}
	for _, p := range participants {
		if p.Host.ID == ev.OwnerHostID {
			p.Role = model.RoleOwner
			return []model.Participant{p}, nil
		}
	}
	h, err := e.store.GetHost(ctx, ev.OwnerHostID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load owner: %v", ErrCannotEvaluate, err)
	}
	return []model.Participant{{Host: h, Role: model.RoleOwner, Weight: model.MinWeight}}, nil
}

// snapshot reads every host's inputs and the event's existing slots concurrently. A host
// whose reads fail is marked unavailable; failing the event-level reads, or every host,
// fails the evaluation. When stats is non-nil the assignment history is read too.
func (e *Engine) snapshot(ctx context.Context, ev model.Event, hosts []model.Participant, date time.Time, stats *[]model.AssignmentStat) (evaluator.Input, error) {
	loc := e.location(ev)
	day := timewindow.DayBounds(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc))
	week := timewindow.WeekBounds(day.Start)
	around := timewindow.Interval{Start: day.Start.AddDate(0, 0, -1), End: day.End.AddDate(0, 0, 1)}

	in := evaluator.Input{
		Event:           ev,
		Hosts:           make([]evaluator.HostSnapshot, len(hosts)),
		Date:            day.Start,
		Now:             e.now(),
		DefaultTimezone: e.cfg.DefaultTimezone,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, e.cfg.FetchTimeout)
		defer cancel()
		slots, err := e.store.ListExistingSlots(fctx, ev.ID, around.Start, around.End)
		if err != nil {
			return fmt.Errorf("list slots: %w", err)
		}
		in.Slots = slots
		return nil
	})
	if stats != nil {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, e.cfg.FetchTimeout)
			defer cancel()
			st, err := e.store.AssignmentStats(fctx, ev.ID)
			if err != nil {
				return fmt.Errorf("assignment stats: %w", err)
			}
			*stats = st
			return nil
		})
	}
	for i, p := range hosts {
		g.Go(func() error {
			snap, err := e.hostSnapshot(gctx, ev, p, around, day, week)
			if err != nil {
				e.logger.Warn("host excluded from evaluation", "event_id", ev.ID, "host_id", p.Host.ID, "err", err)
				snap = evaluator.HostSnapshot{Participant: p, Unavailable: true}
			}
			in.Hosts[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evaluator.Input{}, fmt.Errorf("%w: %v", ErrCannotEvaluate, err)
	}

	if len(in.Hosts) > 0 {
		failed := 0
		for _, h := range in.Hosts {
			if h.Unavailable {
				failed++
			}
		}
		if failed == len(in.Hosts) {
			return evaluator.Input{}, fmt.Errorf("%w: no host could be read", ErrCannotEvaluate)
		}
	}
	return in, nil
}

func (e *Engine) hostSnapshot(ctx context.Context, ev model.Event, p model.Participant, around, day, week timewindow.Interval) (evaluator.HostSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	snap := evaluator.HostSnapshot{Participant: p}
	hostID := p.Host.ID
	all := model.CountScope{HostID: hostID}
	this := model.CountScope{HostID: hostID, EventID: ev.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Patterns, err = e.store.ListPatterns(gctx, hostID)
		return err
	})
	if p.Host.CalendarConnected {
		g.Go(func() (err error) {
			snap.Busy, err = e.store.ListBusyBlocks(gctx, hostID, around.Start, around.End)
			return err
		})
	}
	g.Go(func() (err error) {
		snap.DayCount, err = e.store.CountMeetings(gctx, all, day.Start, day.End)
		return err
	})
	g.Go(func() (err error) {
		snap.WeekCount, err = e.store.CountMeetings(gctx, all, week.Start, week.End)
		return err
	})
	g.Go(func() (err error) {
		snap.EventDayCount, err = e.store.CountMeetings(gctx, this, day.Start, day.End)
		return err
	})
	g.Go(func() (err error) {
		snap.EventWeekCount, err = e.store.CountMeetings(gctx, this, week.Start, week.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return evaluator.HostSnapshot{}, err
	}
	return snap, nil
}
