// Package grpcapi serves the gRPC health service for the blockifier.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ai-speech-blockifier/internal/observability"
	"ai-speech-blockifier/internal/observability/logging"
	"ai-speech-blockifier/internal/observability/metrics"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "ai.speech.blockifier.Blockifier"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

// New builds a gRPC server with health checking and reflection registered.
// Both the overall and the named service start as NOT_SERVING.
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{grpc: g, health: hs, log: logging.WithComponent("grpc")}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of the overall server and ServiceName.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpc.Serve(lis)
}

// GracefulStop marks the server NOT_SERVING and waits for open calls.
func (s *Server) GracefulStop() {
	s.SetServing(false)
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
