package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Outcome is the terminal disposition chosen for a delivery.
type Outcome int

const (
	// OutcomeSuccess acks; the broker drops the message.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure nacks with requeue; the broker redelivers immediately.
	OutcomeFailure
	// OutcomeReject nacks without requeue; the message is dropped or dead-lettered.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "ack"
	case OutcomeFailure:
		return "requeue"
	case OutcomeReject:
		return "reject"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Settle issues exactly one ack or nack for d.
func Settle(d amqp.Delivery, o Outcome) error {
	var err error
	switch o {
	case OutcomeSuccess:
		err = d.Ack(false)
	case OutcomeFailure:
		err = d.Nack(false, true)
	case OutcomeReject:
		err = d.Nack(false, false)
	default:
		return fmt.Errorf("settle delivery %d: unknown %s", d.DeliveryTag, o)
	}
	if err != nil {
		return fmt.Errorf("settle delivery %d (%s): %w", d.DeliveryTag, o, err)
	}
	return nil
}
