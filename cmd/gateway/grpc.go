package main

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/gateway/clients"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
)

const probeInterval = 15 * time.Second

func startGRPC(port string, zl *zap.Logger) (*health.Server, *grpc.Server, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, nil, err
	}

	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(clients.HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)

	go func() {
		zl.Info("gRPC health service listening", zap.String("addr", lis.Addr().String()))
		if err := s.Serve(lis); err != nil {
			zl.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return hs, s, nil
}

// probeSource marks the gateway SERVING while the menu source answers the
// cheapest listing query.
func probeSource(ctx context.Context, svc *service.Service, hs *health.Server, zl *zap.Logger) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		probeCtx, cancel := context.WithTimeout(ctx, probeInterval)
		if _, err := svc.FetchRestaurantIDs(probeCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			zl.Warn("Menu source probe failed", zap.Error(err))
		}
		cancel()

		if ctx.Err() != nil {
			return
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(clients.HealthService, status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
