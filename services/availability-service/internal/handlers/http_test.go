package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

var nine = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type stubEngine struct {
	result   evaluator.Result
	slot     evaluator.SlotResult
	windows  []timewindow.Interval
	host     model.Participant
	err      error
	gotStart time.Time
}

func (s *stubEngine) Evaluate(context.Context, string, string) (evaluator.Result, error) {
	return s.result, s.err
}

func (s *stubEngine) Explain(_ context.Context, _ string, start time.Time) (evaluator.SlotResult, error) {
	s.gotStart = start
	return s.slot, s.err
}

func (s *stubEngine) ListAvailableSlots(context.Context, string, string, string) ([]timewindow.Interval, error) {
	return s.windows, s.err
}

func (s *stubEngine) SelectRoundRobinHost(_ context.Context, _ string, start, _ time.Time) (model.Participant, error) {
	s.gotStart = start
	return s.host, s.err
}

func serve(t *testing.T, eng Availability, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	New(eng, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func TestTroubleshootDayLevel(t *testing.T) {
	eng := &stubEngine{result: evaluator.DayLevelResult{Date: "2026-03-02", Timezone: "UTC", Code: evaluator.CodeNoAvailability, Reason: evaluator.CodeNoAvailability.Reason()}}
	rec := serve(t, eng, http.MethodGet, PathTroubleshoot+"?event_id=ev-1&date=2026-03-02", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got availabilityv1.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != availabilityv1.KindDay || got.Code != "NOAVAILABILITY" || got.Slots == nil || len(got.Slots) != 0 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestTroubleshootSlots(t *testing.T) {
	w := timewindow.Interval{Start: nine, End: nine.Add(30 * time.Minute)}
	slots := []evaluator.SlotResult{
		{Window: w, Code: evaluator.CodeAvailable, Reason: evaluator.CodeAvailable.Reason(), Details: &evaluator.Details{CandidateHosts: []string{"h1"}, ClearedHosts: []string{"h1"}}},
	}
	eng := &stubEngine{result: evaluator.SlotEnumerationResult{
		Date: "2026-03-02", Timezone: "UTC", Slots: slots,
		Summary: evaluator.Summary{Total: 1, Available: 1, Counts: map[evaluator.Code]int{evaluator.CodeAvailable: 1}},
	}}
	rec := serve(t, eng, http.MethodGet, PathTroubleshoot+"?event_id=ev-1&date=2026-03-02", nil)

	var got availabilityv1.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != availabilityv1.KindSlots || len(got.Slots) != 1 || got.Summary == nil || got.Summary.Counts["AVAILABLE"] != 1 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if got.Slots[0].StartTime != "2026-03-02T09:00:00Z" || got.Slots[0].Details.ClearedHosts[0] != "h1" {
		t.Fatalf("unexpected slot %#v", got.Slots[0])
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: date is required", engine.ErrInvalidInput), http.StatusBadRequest},
		{engine.ErrEventNotFound, http.StatusNotFound},
		{engine.ErrInvalidEvent, http.StatusUnprocessableEntity},
		{engine.ErrNoEligibleHost, http.StatusConflict},
		{fmt.Errorf("%w: db", engine.ErrCannotEvaluate), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(t, &stubEngine{err: tc.err}, http.MethodGet, PathTroubleshoot+"?event_id=x&date=2026-03-02", nil)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
	rec := serve(t, &stubEngine{err: fmt.Errorf("boom")}, http.MethodGet, PathTroubleshoot, nil)
	if !strings.Contains(rec.Body.String(), "internal error") {
		t.Fatalf("internal errors must not leak details: %s", rec.Body.String())
	}
}

func TestUnavailableHidesCauseAndLogsIt(t *testing.T) {
	var logs bytes.Buffer
	mux := http.NewServeMux()
	New(&stubEngine{err: fmt.Errorf("%w: dial tcp 10.0.0.7:5432: connection refused", engine.ErrCannotEvaluate)},
		slog.New(slog.NewTextHandler(&logs, nil))).Register(mux)

	req := httptest.NewRequest(http.MethodGet, PathTroubleshoot+"?event_id=x&date=2026-03-02", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Sub: "admin-1", TenantID: "t1", Role: "admin"}))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "cannot evaluate availability" {
		t.Fatalf("unexpected body %v", body)
	}
	out := logs.String()
	if !strings.Contains(out, "connection refused") || !strings.Contains(out, "subject=admin-1") {
		t.Fatalf("expected cause and caller in logs, got %q", out)
	}
}

func TestTroubleshootWindow(t *testing.T) {
	eng := &stubEngine{slot: evaluator.SlotResult{
		Window: timewindow.Interval{Start: nine, End: nine.Add(30 * time.Minute)},
		Code:   evaluator.CodeOutsideHours, Reason: evaluator.CodeOutsideHours.Reason(),
	}}
	rec := serve(t, eng, http.MethodGet, PathTroubleshootWindow+"?event_id=ev-1&start_time=2026-03-02T09:00:00Z", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"code":"OUTSIDEHOURS"`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if !eng.gotStart.Equal(nine) {
		t.Fatalf("expected start passed through, got %s", eng.gotStart)
	}

	rec = serve(t, eng, http.MethodGet, PathTroubleshootWindow+"?event_id=ev-1&start_time=tomorrow", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad start_time, got %d", rec.Code)
	}
}

func TestPublicSlots(t *testing.T) {
	eng := &stubEngine{windows: []timewindow.Interval{{Start: nine, End: nine.Add(30 * time.Minute)}}}
	rec := serve(t, eng, http.MethodGet, PathPublicSlots+"?event_id=ev-1&from=2026-03-02", nil)
	var got availabilityv1.SlotList
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.To != "2026-03-02" || len(got.Slots) != 1 || got.Slots[0].EndTime != "2026-03-02T09:30:00Z" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = serve(t, eng, http.MethodPost, PathPublicSlots, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSelectHost(t *testing.T) {
	eng := &stubEngine{host: model.Participant{Host: model.Host{ID: "h2"}, Role: model.RoleHost, Weight: 3}}
	body := `{"event_id":"rr","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T09:30:00Z"}`
	rec := serve(t, eng, http.MethodPost, PathRoundRobinSelect, strings.NewReader(body))
	var got availabilityv1.SelectedHost
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HostID != "h2" || got.Weight != 3 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = serve(t, eng, http.MethodPost, PathRoundRobinSelect, strings.NewReader(`{"event_id":"rr","start_time":"x"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
