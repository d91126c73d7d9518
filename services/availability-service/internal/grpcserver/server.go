package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/view"
)

type Availability interface {
	Evaluate(ctx context.Context, eventID, date string) (evaluator.Result, error)
	Explain(ctx context.Context, eventID string, start time.Time) (evaluator.SlotResult, error)
	ListAvailableSlots(ctx context.Context, eventID, from, to string) ([]timewindow.Interval, error)
	SelectRoundRobinHost(ctx context.Context, eventID string, start, end time.Time) (model.Participant, error)
}

type server struct {
	svc Availability
}

// Register installs the availability service and the standard health service. The
// returned health server lets the caller flip to NOT_SERVING on shutdown.
func Register(grpcServer *grpc.Server, svc Availability) *health.Server {
	availabilityv1.RegisterAvailabilityServer(grpcServer, &server{svc: svc})
	hs := health.NewServer()
	hs.SetServingStatus(availabilityv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

func decode(in *structpb.Struct, v any) error {
	if err := availabilityv1.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := availabilityv1.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}

func (s *server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availabilityv1.EvaluateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Evaluate(ctx, strings.TrimSpace(req.EventID), strings.TrimSpace(req.Date))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(view.Evaluation(req.EventID, res))
}

func (s *server) Explain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availabilityv1.ExplainRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	start, err := view.ParseTime(req.StartTime)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "start_time must be RFC3339")
	}
	res, err := s.svc.Explain(ctx, strings.TrimSpace(req.EventID), start)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(view.Slot(res))
}

func (s *server) ListAvailableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availabilityv1.ListSlotsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.To == "" {
		req.To = req.From
	}
	windows, err := s.svc.ListAvailableSlots(ctx, strings.TrimSpace(req.EventID), req.From, req.To)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(view.Windows(req.EventID, req.From, req.To, windows))
}

func (s *server) SelectHost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availabilityv1.SelectHostRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	start, err := view.ParseTime(req.StartTime)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "start_time must be RFC3339")
	}
	end, err := view.ParseTime(req.EndTime)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "end_time must be RFC3339")
	}
	host, err := s.svc.SelectRoundRobinHost(ctx, strings.TrimSpace(req.EventID), start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(view.Selected(req.EventID, host))
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrEventNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidEvent), errors.Is(err, engine.ErrNoEligibleHost):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, engine.ErrCannotEvaluate):
		return status.Error(codes.Unavailable, "cannot evaluate availability")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
