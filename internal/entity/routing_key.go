package domain

import (
	"errors"
	"fmt"
)

// RoutingKey identifies the kind of event carried by a delivery.
// Values only come from DecodeRoutingKey or the constants below.
type RoutingKey string

const (
	RoutingKeyOrderCreated       RoutingKey = "order.created"
	RoutingKeyOrderStatusChanged RoutingKey = "order.status.changed"
	RoutingKeyOrderCancelled     RoutingKey = "order.cancelled"
	RoutingKeyPaymentCaptured    RoutingKey = "payment.captured"
)

var ErrUnknownRoutingKey = errors.New("unknown routing key")

var routingKeys = []RoutingKey{
	RoutingKeyOrderCreated,
	RoutingKeyOrderStatusChanged,
	RoutingKeyOrderCancelled,
	RoutingKeyPaymentCaptured,
}

// DecodeError reports a wire routing key outside the recognized set.
type DecodeError struct {
	Wire string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode routing key %q: %v", e.Wire, ErrUnknownRoutingKey)
}

func (e *DecodeError) Unwrap() error { return ErrUnknownRoutingKey }

// DecodeRoutingKey maps a wire string to its RoutingKey.
func DecodeRoutingKey(s string) (RoutingKey, error) {
	for _, k := range routingKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &DecodeError{Wire: s}
}

// RoutingKeys returns the recognized set in declaration order.
func RoutingKeys() []RoutingKey {
	out := make([]RoutingKey, len(routingKeys))
	copy(out, routingKeys)
	return out
}

func (k RoutingKey) String() string { return string(k) }
