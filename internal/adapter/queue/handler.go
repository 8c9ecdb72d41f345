package queue

import (
	"context"

	domain "github.com/aq2208/gorder-bridge/internal/entity"
)

// Handler processes a single decoded message. It should be idempotent:
// the bridge does not deduplicate redeliveries.
// Return nil => ACK; return error => NACK with requeue.
type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, msg domain.InboundMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg domain.InboundMessage) error { return f(ctx, msg) }
