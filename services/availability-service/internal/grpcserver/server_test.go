package grpcserver

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/libs/grpcx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/evaluator"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/timewindow"
)

var nine = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type stub struct {
	err       error
	gotDate   string
	requestID string
}

func (s *stub) Evaluate(ctx context.Context, _ string, date string) (evaluator.Result, error) {
	s.gotDate = date
	s.requestID = grpcx.RequestIDFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	w := timewindow.Interval{Start: nine, End: nine.Add(30 * time.Minute)}
	slots := []evaluator.SlotResult{{Window: w, Code: evaluator.CodeCalendar, Reason: evaluator.CodeCalendar.Reason()}}
	return evaluator.SlotEnumerationResult{
		Date: date, Timezone: "UTC", Slots: slots,
		Summary: evaluator.Summary{Total: 1, Blocked: 1, Counts: map[evaluator.Code]int{evaluator.CodeCalendar: 1}, TopBlockingReason: evaluator.CodeCalendar},
	}, nil
}

func (s *stub) Explain(_ context.Context, _ string, start time.Time) (evaluator.SlotResult, error) {
	w := timewindow.Interval{Start: start, End: start.Add(30 * time.Minute)}
	return evaluator.SlotResult{Window: w, Code: evaluator.CodeAvailable, Reason: evaluator.CodeAvailable.Reason()}, s.err
}

func (s *stub) ListAvailableSlots(context.Context, string, string, string) ([]timewindow.Interval, error) {
	return []timewindow.Interval{{Start: nine, End: nine.Add(30 * time.Minute)}}, s.err
}

func (s *stub) SelectRoundRobinHost(context.Context, string, time.Time, time.Time) (model.Participant, error) {
	return model.Participant{Host: model.Host{ID: "h2"}, Role: model.RoleHost, Weight: 2}, s.err
}

func dial(t *testing.T, svc Availability) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpcx.NewServer()
	Register(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), "bufnet", grpcx.DialOptions{Timeout: 2 * time.Second},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEvaluateOverGRPC(t *testing.T) {
	svc := &stub{}
	client := availabilityv1.NewClient(dial(t, svc))

	got, err := client.Evaluate(context.Background(), availabilityv1.EvaluateRequest{EventID: "ev-1", Date: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", svc.gotDate)
	assert.NotEmpty(t, svc.requestID, "server interceptor sets a request id")
	assert.Equal(t, availabilityv1.KindSlots, got.Kind)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "CALENDAR", got.Slots[0].Code)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Blocked)
	assert.Equal(t, "CALENDAR", got.Summary.TopBlockingReason)
}

func TestOtherMethodsOverGRPC(t *testing.T) {
	client := availabilityv1.NewClient(dial(t, &stub{}))
	ctx := context.Background()

	slot, err := client.Explain(ctx, availabilityv1.ExplainRequest{EventID: "ev-1", StartTime: "2026-03-02T09:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "AVAILABLE", slot.Code)

	list, err := client.ListAvailableSlots(ctx, availabilityv1.ListSlotsRequest{EventID: "ev-1", From: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", list.To)
	require.Len(t, list.Slots, 1)

	host, err := client.SelectHost(ctx, availabilityv1.SelectHostRequest{EventID: "rr", StartTime: "2026-03-02T09:00:00Z", EndTime: "2026-03-02T09:30:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "h2", host.HostID)
	assert.Equal(t, 2, host.Weight)

	_, err = client.Explain(ctx, availabilityv1.ExplainRequest{EventID: "ev-1", StartTime: "noon"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestErrorCodes(t *testing.T) {
	cases := map[error]codes.Code{
		engine.ErrEventNotFound:  codes.NotFound,
		engine.ErrInvalidInput:   codes.InvalidArgument,
		engine.ErrNoEligibleHost: codes.FailedPrecondition,
		engine.ErrCannotEvaluate: codes.Unavailable,
	}
	for in, want := range cases {
		client := availabilityv1.NewClient(dial(t, &stub{err: in}))
		_, err := client.Evaluate(context.Background(), availabilityv1.EvaluateRequest{EventID: "ev-1", Date: "2026-03-02"})
		assert.Equal(t, want, status.Code(err), in.Error())
	}
}

func TestUnavailableHidesCause(t *testing.T) {
	cause := fmt.Errorf("%w: dial tcp 10.0.0.7:5432: connection refused", engine.ErrCannotEvaluate)
	client := availabilityv1.NewClient(dial(t, &stub{err: cause}))
	_, err := client.Evaluate(context.Background(), availabilityv1.EvaluateRequest{EventID: "ev-1", Date: "2026-03-02"})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, "cannot evaluate availability", status.Convert(err).Message())
}

func TestHealthServing(t *testing.T) {
	conn := dial(t, &stub{})
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: availabilityv1.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
