package availabilityv1

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct holding the JSON form of the types above.
const (
	ServiceName = "slotengine.availability.v1.AvailabilityService"

	FullMethodEvaluate   = "/" + ServiceName + "/Evaluate"
	FullMethodExplain    = "/" + ServiceName + "/Explain"
	FullMethodListSlots  = "/" + ServiceName + "/ListAvailableSlots"
	FullMethodSelectHost = "/" + ServiceName + "/SelectHost"
)

type AvailabilityServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Explain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectHost(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(full string, call method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unary(FullMethodEvaluate, AvailabilityServer.Evaluate)},
		{MethodName: "Explain", Handler: unary(FullMethodExplain, AvailabilityServer.Explain)},
		{MethodName: "ListAvailableSlots", Handler: unary(FullMethodListSlots, AvailabilityServer.ListAvailableSlots)},
		{MethodName: "SelectHost", Handler: unary(FullMethodSelectHost, AvailabilityServer.SelectHost)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slotengine/availability/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Encode converts a wire type to a Struct.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode fills v from a Struct.
func Decode(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, full string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, full, in, out, opts...); err != nil {
		return err
	}
	return Decode(out, resp)
}

func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest, opts ...grpc.CallOption) (Evaluation, error) {
	var out Evaluation
	err := c.invoke(ctx, FullMethodEvaluate, req, &out, opts...)
	return out, err
}

func (c *Client) Explain(ctx context.Context, req ExplainRequest, opts ...grpc.CallOption) (Slot, error) {
	var out Slot
	err := c.invoke(ctx, FullMethodExplain, req, &out, opts...)
	return out, err
}

func (c *Client) ListAvailableSlots(ctx context.Context, req ListSlotsRequest, opts ...grpc.CallOption) (SlotList, error) {
	var out SlotList
	err := c.invoke(ctx, FullMethodListSlots, req, &out, opts...)
	return out, err
}

func (c *Client) SelectHost(ctx context.Context, req SelectHostRequest, opts ...grpc.CallOption) (SelectedHost, error) {
	var out SelectedHost
	err := c.invoke(ctx, FullMethodSelectHost, req, &out, opts...)
	return out, err
}
