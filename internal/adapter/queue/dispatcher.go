package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	domain "github.com/aq2208/gorder-bridge/internal/entity"
	"github.com/aq2208/gorder-bridge/internal/logging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// State is the lifecycle position of a Dispatcher.
type State int32

const (
	StateIdle State = iota
	StateConsuming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConsuming:
		return "consuming"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	ErrConsumerCanceled = errors.New("consumer canceled by broker")
	ErrDeliveriesClosed = errors.New("delivery stream closed")
	ErrAlreadyStarted   = errors.New("dispatcher already started")
)

// deliveryCountHeader is set by quorum queues to the number of earlier delivery attempts.
const deliveryCountHeader = "x-delivery-count"

// Dispatcher consumes one queue and feeds each delivery to a Handler,
// one at a time, settling every delivery before reading the next.
type Dispatcher struct {
	ch            Channel
	cfg           BrokerConfig
	handler       Handler
	logger        *slog.Logger
	consumerTag   string
	maxDeliveries int64
	onState       func(State)

	started atomic.Bool
	state   atomic.Int32
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

func WithConsumerTag(tag string) Option { return func(d *Dispatcher) { d.consumerTag = tag } }

// WithMaxDeliveries rejects a failing message once it has been delivered n times.
// It relies on the x-delivery-count header, so it only takes effect on quorum queues.
// n <= 0 keeps requeueing forever.
func WithMaxDeliveries(n int) Option { return func(d *Dispatcher) { d.maxDeliveries = int64(n) } }

// WithStateListener is called on every state transition.
func WithStateListener(fn func(State)) Option { return func(d *Dispatcher) { d.onState = fn } }

func NewDispatcher(ch Channel, cfg BrokerConfig, h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ch:      ch,
		cfg:     cfg,
		handler: h,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.consumerTag == "" {
		d.consumerTag = "bridge-" + uuid.NewString()
	}
	return d
}

func (d *Dispatcher) State() State { return State(d.state.Load()) }

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
	if d.onState != nil {
		d.onState(s)
	}
}

// Run declares the topology, starts consuming and blocks until the broker
// cancels the consumer, the delivery stream closes, a delivery cannot be
// settled, or ctx is done. A Dispatcher runs at most once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer d.setState(StateStopped)

	q, err := DeclareTopology(d.ch, d.cfg)
	if err != nil {
		return err
	}
	// one unacked delivery at a time
	if err := d.ch.Qos(1, 0, false); err != nil {
		return &SetupError{Step: "set qos", Err: err}
	}
	cancels := d.ch.NotifyCancel(make(chan string, 1))
	deliveries, err := d.ch.Consume(
		q.Name,
		d.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return &SetupError{Step: "consume " + q.Name, Err: err}
	}

	d.setState(StateConsuming)
	d.logger.Info("consumer started",
		"queue", q.Name,
		"exchange", d.cfg.ExchangeName,
		"routing_keys", d.cfg.RoutingKeys,
		"consumer_tag", d.consumerTag,
	)

	for {
		// a pending delivery must not win the select once shutdown is requested
		if err := ctx.Err(); err != nil {
			return d.stopOnContext(err)
		}
		select {
		case <-ctx.Done():
			return d.stopOnContext(ctx.Err())

		case tag, ok := <-cancels:
			if !ok {
				consumerStops.WithLabelValues("channel_closed").Inc()
				d.logger.Warn("consumer stopped", "reason", "channel closed")
				return ErrDeliveriesClosed
			}
			consumerStops.WithLabelValues("canceled").Inc()
			d.logger.Warn("consumer stopped", "reason", "canceled by broker", "consumer_tag", tag)
			return fmt.Errorf("%w: %s", ErrConsumerCanceled, tag)

		case del, ok := <-deliveries:
			if !ok {
				consumerStops.WithLabelValues("deliveries_closed").Inc()
				d.logger.Warn("consumer stopped", "reason", "delivery stream closed")
				return ErrDeliveriesClosed
			}
			if err := d.dispatch(ctx, del); err != nil {
				consumerStops.WithLabelValues("settle_failed").Inc()
				d.logger.Error("consumer stopped", "reason", "settle failed", "error", err)
				return err
			}
		}
	}
}

func (d *Dispatcher) stopOnContext(err error) error {
	consumerStops.WithLabelValues("context").Inc()
	d.logger.Info("consumer stopped", "reason", "context", "error", err)
	return err
}

// dispatch decodes, handles and settles one delivery. Only settle errors are returned.
func (d *Dispatcher) dispatch(ctx context.Context, del amqp.Delivery) error {
	l := d.logger.With(
		"delivery_tag", del.DeliveryTag,
		"routing_key", del.RoutingKey,
		"message_id", del.MessageId,
	)

	key, err := domain.DecodeRoutingKey(del.RoutingKey)
	if err != nil {
		if serr := Settle(del, OutcomeReject); serr != nil {
			return serr
		}
		deliveriesTotal.WithLabelValues(unknownKeyLabel, OutcomeReject.String()).Inc()
		l.Error("delivery failed", "error", err, "disposition", OutcomeReject.String())
		return nil
	}

	msg := domain.InboundMessage{
		Body:        lossyString(del.Body),
		RoutingKey:  key,
		MessageID:   del.MessageId,
		ContentType: del.ContentType,
		Redelivered: del.Redelivered,
		Headers:     del.Headers,
	}

	start := time.Now()
	herr := d.call(logging.WithCtx(ctx, l), msg)
	handlerDuration.WithLabelValues(key.String()).Observe(float64(time.Since(start).Milliseconds()))

	outcome := OutcomeSuccess
	if herr != nil {
		outcome = d.failureOutcome(del)
	}
	if err := Settle(del, outcome); err != nil {
		return err
	}
	deliveriesTotal.WithLabelValues(key.String(), outcome.String()).Inc()

	if herr != nil {
		l.Error("delivery failed", "error", herr, "disposition", outcome.String(), "redelivered", del.Redelivered)
		return nil
	}
	l.Info("delivery processed")
	return nil
}

func (d *Dispatcher) call(ctx context.Context, msg domain.InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, msg)
}

func (d *Dispatcher) failureOutcome(del amqp.Delivery) Outcome {
	if d.maxDeliveries <= 0 {
		return OutcomeFailure
	}
	if deliveryCount(del.Headers)+1 >= d.maxDeliveries {
		return OutcomeReject
	}
	return OutcomeFailure
}

func deliveryCount(h amqp.Table) int64 {
	switch v := h[deliveryCountHeader].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int:
		return int64(v)
	case uint32:
		return int64(v)
	}
	return 0
}
