// Package server exposes the standard gRPC health service for the polling loop.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "wirecert-sync"

type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// Listen binds addr and registers the health and reflection services.
// Status starts as NOT_SERVING until SetServing is called.
func Listen(addr string, logger *slog.Logger) (*HealthServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &HealthServer{grpc: gs, health: hs, lis: lis, logger: logger}
	s.SetServing(false)
	return s, nil
}

// Addr is the bound listener address.
func (s *HealthServer) Addr() string { return s.lis.Addr().String() }

// Serve blocks until the server stops or ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.logger.Info("health.serving", "addr", s.Addr())
	if err := s.grpc.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// SetServing flips both the overall and the named service status.
func (s *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	s.logger.Debug("health.status", "status", st.String())
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
