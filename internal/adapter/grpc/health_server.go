package grpc

import (
	"net"

	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves grpc.health.v1 for the bridge. The named service
// (and the overall "" service) is SERVING only while the dispatcher consumes.
type HealthServer struct {
	srv     *grpc.Server
	health  *health.Server
	service string
}

func NewHealthServer(service string) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	h := &HealthServer{srv: srv, health: hs, service: service}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// OnState is meant to be passed to queue.WithStateListener.
func (h *HealthServer) OnState(s queue.State) {
	if s == queue.StateConsuming {
		h.set(healthpb.HealthCheckResponse_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (h *HealthServer) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(h.service, st)
}

func (h *HealthServer) Serve(lis net.Listener) error { return h.srv.Serve(lis) }

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
