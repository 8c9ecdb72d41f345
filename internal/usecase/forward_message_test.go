package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/aq2208/gorder-bridge/internal/entity"
)

type recordingSink struct {
	got []Envelope
	err error
}

func (s *recordingSink) Forward(ctx context.Context, env Envelope) error {
	s.got = append(s.got, env)
	return s.err
}

func TestForwardMessage_BuildsEnvelope(t *testing.T) {
	sink := &recordingSink{}
	uc := NewForwardMessage("test", sink)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	err := uc.Handle(context.Background(), domain.InboundMessage{
		Body:        `{"orderId":"o-1"}`,
		RoutingKey:  domain.RoutingKeyOrderCreated,
		MessageID:   "m-1",
		ContentType: "application/json",
		Redelivered: true,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := Envelope{
		ID:          "m-1",
		RoutingKey:  "order.created",
		ContentType: "application/json",
		Body:        `{"orderId":"o-1"}`,
		Redelivered: true,
		ReceivedAt:  fixed,
	}
	if len(sink.got) != 1 || sink.got[0] != want {
		t.Fatalf("forwarded %+v, want %+v", sink.got, want)
	}
}

func TestForwardMessage_GeneratesID(t *testing.T) {
	sink := &recordingSink{}
	uc := NewForwardMessage("test", sink)
	if err := uc.Handle(context.Background(), domain.InboundMessage{RoutingKey: domain.RoutingKeyOrderCancelled}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sink.got) != 1 || len(sink.got[0].ID) != 36 {
		t.Fatalf("expected generated uuid, got %+v", sink.got)
	}
}

func TestForwardMessage_WrapsSinkError(t *testing.T) {
	boom := errors.New("boom")
	uc := NewForwardMessage("kafka", &recordingSink{err: boom})
	err := uc.Handle(context.Background(), domain.InboundMessage{RoutingKey: domain.RoutingKeyPaymentCaptured})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "kafka") {
		t.Fatalf("err = %v", err)
	}
}
