package usecase

import (
	"context"
	"time"
)

// Envelope is the sink-facing shape of a forwarded message (kept out of domain).
type Envelope struct {
	ID, RoutingKey, ContentType, Body string
	Redelivered                       bool
	ReceivedAt                        time.Time
}

// Sink receives forwarded messages. A returned error means the delivery is requeued.
type Sink interface {
	Forward(ctx context.Context, env Envelope) error
}
