package main

import (
	"context"
	"log/slog"
	"net"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/slotengine/libs/availabilityv1"
	"github.com/md-rashed-zaman/slotengine/libs/grpcx"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/grpcserver"
)

func startGrpcServer(ctx context.Context, logger *slog.Logger, port string, eng *engine.Engine) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpcx.NewServer()
	hs := grpcserver.Register(srv, eng)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.SetServingStatus(availabilityv1.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		srv.GracefulStop()
	}()

	return nil
}
