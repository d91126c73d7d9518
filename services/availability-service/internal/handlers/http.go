package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/view"
)

const (
	PathTroubleshoot       = "/api/v1/events/troubleshoot"
	PathTroubleshootWindow = "/api/v1/events/troubleshoot/window"
	PathPublicSlots        = "/api/v1/public/slots"
	PathRoundRobinSelect   = "/api/v1/events/round-robin/select"
)

// Availability is the engine surface the handlers call.
type Availability interface {
	Evaluate(ctx context.Context, eventID, date string) (evaluator.Result, error)
	Explain(ctx context.Context, eventID string, start time.Time) (evaluator.SlotResult, error)
	ListAvailableSlots(ctx context.Context, eventID, from, to string) ([]timewindow.Interval, error)
	SelectRoundRobinHost(ctx context.Context, eventID string, start, end time.Time) (model.Participant, error)
}

type Handler struct {
	engine Availability
	logger *slog.Logger
}

func New(engine Availability, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(PathTroubleshoot, h.Troubleshoot)
	mux.HandleFunc(PathTroubleshootWindow, h.TroubleshootWindow)
	mux.HandleFunc(PathPublicSlots, h.PublicSlots)
	mux.HandleFunc(PathRoundRobinSelect, h.SelectHost)
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func (h *Handler) Troubleshoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	eventID := query(r, "event_id")
	res, err := h.engine.Evaluate(r.Context(), eventID, query(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view.Evaluation(eventID, res))
}

func (h *Handler) TroubleshootWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start, err := view.ParseTime(query(r, "start_time"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "start_time must be RFC3339")
		return
	}
	res, err := h.engine.Explain(r.Context(), query(r, "event_id"), start)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view.Slot(res))
}

func (h *Handler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	eventID, from, to := query(r, "event_id"), query(r, "from"), query(r, "to")
	if to == "" {
		to = from
	}
	windows, err := h.engine.ListAvailableSlots(r.Context(), eventID, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view.Windows(eventID, from, to, windows))
}

func (h *Handler) SelectHost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req availabilityv1.SelectHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := view.ParseTime(req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "start_time must be RFC3339")
		return
	}
	end, err := view.ParseTime(req.EndTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "end_time must be RFC3339")
		return
	}
	host, err := h.engine.SelectRoundRobinHost(r.Context(), strings.TrimSpace(req.EventID), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view.Selected(req.EventID, host))
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidEvent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNoEligibleHost):
		return http.StatusConflict
	case errors.Is(err, engine.ErrCannotEvaluate), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON. Server-side failures are logged with the caller and answered
// with a fixed message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "cannot evaluate availability"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		attrs := []any{"err", err, "status", status, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context())}
		if c, ok := auth.ClaimsFromContext(r.Context()); ok {
			attrs = append(attrs, "subject", c.Sub, "tenant_id", c.TenantID)
		}
		h.logger.Error("availability request failed", attrs...)
	}
	httpx.WriteError(w, status, msg)
}
