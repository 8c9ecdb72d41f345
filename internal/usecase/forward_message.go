package usecase

import (
	"context"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-bridge/internal/entity"
	"github.com/aq2208/gorder-bridge/internal/logging"
	"github.com/google/uuid"
)

// ForwardMessage hands decoded messages to a Sink.
type ForwardMessage struct {
	name string
	sink Sink
	now  func() time.Time
}

func NewForwardMessage(name string, sink Sink) *ForwardMessage {
	return &ForwardMessage{name: name, sink: sink, now: time.Now}
}

func (uc *ForwardMessage) Handle(ctx context.Context, msg domain.InboundMessage) error {
	id := msg.MessageID
	if id == "" {
		// publisher set no message id; redeliveries will get a fresh one
		id = uuid.NewString()
	}
	env := Envelope{
		ID:          id,
		RoutingKey:  msg.RoutingKey.String(),
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Redelivered: msg.Redelivered,
		ReceivedAt:  uc.now().UTC(),
	}
	if err := uc.sink.Forward(ctx, env); err != nil {
		return fmt.Errorf("forward to %s: %w", uc.name, err)
	}
	logging.FromCtx(ctx).Debug("message forwarded", "sink", uc.name, "id", id)
	return nil
}
