package logsink

import (
	"context"
	"log/slog"

	"github.com/aq2208/gorder-bridge/internal/usecase"
)

// Sink writes forwarded messages to the log. Useful for local runs and for
// routing keys nobody downstream consumes yet.
type Sink struct {
	l       *slog.Logger
	logBody bool
}

func New(l *slog.Logger, logBody bool) *Sink { return &Sink{l: l, logBody: logBody} }

func (s *Sink) Forward(ctx context.Context, env usecase.Envelope) error {
	attrs := []any{
		"id", env.ID,
		"routing_key", env.RoutingKey,
		"content_type", env.ContentType,
		"bytes", len(env.Body),
	}
	if s.logBody {
		attrs = append(attrs, "body", env.Body)
	}
	s.l.InfoContext(ctx, "message received", attrs...)
	return nil
}

var _ usecase.Sink = (*Sink)(nil)
