package server

import (
	"context"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/server/interceptors"
	"github.com/projectNEWM/newm-server-sub005/internal/telemetry"
)

// Pinger reports backend liveness for readiness checks (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the cross-cutting dependencies wired into the gRPC server.
type Deps struct {
	// Orchestrator authenticates signed requests presented via headers.
	Orchestrator interceptors.Authenticator
	// Tokens validates Bearer access tokens issued by this server.
	Tokens *security.TokenProvider
	// Emitter receives per-RPC telemetry events. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
	// PublicMethods is the set of full method names requiring no authentication
	// (login RPCs, health checks).
	PublicMethods map[string]bool
	// DB is pinged to drive the health service's serving status. If nil, the
	// health service always reports SERVING.
	DB Pinger
}

const healthCheckInterval = 10 * time.Second

// Server wraps a grpc.Server with its health reporter.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	done   chan struct{}
}

// New builds the gRPC server with the authentication and telemetry
// interceptor chain and an OTel stats handler, and registers the standard
// gRPC health service.
func New(deps Deps) *Server {
	skip := map[string]bool{
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}
	public := make(map[string]bool, len(deps.PublicMethods)+len(skip))
	for m := range deps.PublicMethods {
		public[m] = true
	}
	for m := range skip {
		public[m] = true
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Orchestrator, deps.Tokens, public),
			interceptors.TelemetryUnary(deps.Emitter, skip),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	srv := &Server{grpc: s, health: hs, done: make(chan struct{})}
	if deps.DB != nil {
		go srv.watchReadiness(deps.DB)
	}
	return srv
}

// Registrar exposes the underlying server for service registration.
func (s *Server) Registrar() grpc.ServiceRegistrar {
	return s.grpc
}

// Serve blocks serving connections on lis until GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop drains in-flight RPCs and stops the readiness watcher.
func (s *Server) GracefulStop() {
	close(s.done)
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) watchReadiness(db Pinger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := db.PingContext(ctx)
		cancel()
		if err != nil {
			log.Printf("server: readiness ping failed: %v", err)
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			continue
		}
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}
}
