package queue

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/aq2208/gorder-bridge/internal/entity"
)

var ErrNoRoute = errors.New("no handler registered for routing key")

// Router dispatches messages to per-routing-key handlers.
type Router struct {
	routes   map[domain.RoutingKey]Handler
	fallback Handler
}

type RouterOption func(*Router)

// WithFallback sets the handler used for keys without a registration.
func WithFallback(h Handler) RouterOption { return func(r *Router) { r.fallback = h } }

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{routes: make(map[domain.RoutingKey]Handler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a routing key with a handler. A later call for the same key replaces it.
func (r *Router) Register(key domain.RoutingKey, h Handler) {
	r.routes[key] = h
}

func (r *Router) Handle(ctx context.Context, msg domain.InboundMessage) error {
	h, ok := r.routes[msg.RoutingKey]
	if !ok {
		h = r.fallback
	}
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNoRoute, msg.RoutingKey)
	}
	return h.Handle(ctx, msg)
}
