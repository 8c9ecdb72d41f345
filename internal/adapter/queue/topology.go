package queue

import (
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeKind is the AMQP exchange type.
type ExchangeKind string

const (
	ExchangeDirect  ExchangeKind = amqp.ExchangeDirect
	ExchangeFanout  ExchangeKind = amqp.ExchangeFanout
	ExchangeTopic   ExchangeKind = amqp.ExchangeTopic
	ExchangeHeaders ExchangeKind = amqp.ExchangeHeaders
)

var ErrInvalidExchangeKind = errors.New("invalid exchange kind")

func ParseExchangeKind(s string) (ExchangeKind, error) {
	switch k := ExchangeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ExchangeDirect, ExchangeFanout, ExchangeTopic, ExchangeHeaders:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExchangeKind, s)
}

// BrokerConfig describes the queue, the exchange and the bindings between them.
// It is built once at startup and only read afterwards.
type BrokerConfig struct {
	QueueName    string
	ExchangeName string
	ExchangeKind ExchangeKind
	RoutingKeys  []string

	// Optional queue arguments. They never change durability.
	DeadLetterExchange string
	QueueType          string
}

func (c BrokerConfig) Validate() error {
	if c.QueueName == "" {
		return errors.New("queue name required")
	}
	if c.ExchangeName == "" {
		return errors.New("exchange name required")
	}
	if _, err := ParseExchangeKind(string(c.ExchangeKind)); err != nil {
		return err
	}
	if len(c.RoutingKeys) == 0 {
		return errors.New("at least one routing key required")
	}
	seen := make(map[string]struct{}, len(c.RoutingKeys))
	for _, k := range c.RoutingKeys {
		if k == "" {
			return errors.New("routing key must not be empty")
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate routing key %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func (c BrokerConfig) queueArgs() amqp.Table {
	if c.DeadLetterExchange == "" && c.QueueType == "" {
		return nil
	}
	args := amqp.Table{}
	if c.DeadLetterExchange != "" {
		args["x-dead-letter-exchange"] = c.DeadLetterExchange
	}
	if c.QueueType != "" {
		args["x-queue-type"] = c.QueueType
	}
	return args
}

// SetupError reports which topology step failed.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *SetupError) Unwrap() error { return e.Err }

// DeclareTopology declares the queue and the exchange and binds every routing key.
// The first failing call aborts the whole setup.
func DeclareTopology(ch Channel, cfg BrokerConfig) (amqp.Queue, error) {
	// 1. declare queue
	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		cfg.queueArgs(),
	)
	if err != nil {
		return amqp.Queue{}, &SetupError{Step: "declare queue " + cfg.QueueName, Err: err}
	}

	// 2. declare exchange
	if err := ch.ExchangeDeclare(
		cfg.ExchangeName,
		string(cfg.ExchangeKind),
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return amqp.Queue{}, &SetupError{Step: "declare exchange " + cfg.ExchangeName, Err: err}
	}

	// 3. bind queue → exchange, once per key
	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(q.Name, key, cfg.ExchangeName, false, nil); err != nil {
			return amqp.Queue{}, &SetupError{Step: fmt.Sprintf("bind %s to %s with %q", q.Name, cfg.ExchangeName, key), Err: err}
		}
	}
	return q, nil
}
