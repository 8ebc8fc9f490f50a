package clients

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name the gateway reports under, next to the
// server-wide "" entry.
const HealthService = "menu.Gateway"

type GRPCClients struct {
	Health     healthpb.HealthClient
	healthConn *grpc.ClientConn
}

func NewGRPCClients(addr string) (*GRPCClients, error) {
	healthConn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health service connection failed: %w", err)
	}

	return &GRPCClients{
		Health:     healthpb.NewHealthClient(healthConn),
		healthConn: healthConn,
	}, nil
}

// IsServing reports whether service is SERVING. Transport errors are returned as is.
func (c *GRPCClients) IsServing(ctx context.Context, service string) (bool, error) {
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *GRPCClients) Close() {
	if c.healthConn != nil {
		c.healthConn.Close()
	}
}
