package queue

import (
	"errors"
	"reflect"
	"testing"
)

func ordersConfig() BrokerConfig {
	return BrokerConfig{
		QueueName:    "orders",
		ExchangeName: "events",
		ExchangeKind: ExchangeTopic,
		RoutingKeys:  []string{"order.created"},
	}
}

func TestDeclareTopology_Orders(t *testing.T) {
	ch := newFakeChannel()
	q, err := DeclareTopology(ch, ordersConfig())
	if err != nil {
		t.Fatalf("DeclareTopology: %v", err)
	}
	if q.Name != "orders" {
		t.Fatalf("queue name = %q", q.Name)
	}
	want := []string{
		"queue.declare orders durable=true auto_delete=false exclusive=false",
		"exchange.declare events durable=true auto_delete=false internal=false",
		"queue.bind orders events order.created",
	}
	if got := ch.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls:\n got %q\nwant %q", got, want)
	}
	if ch.exchKind != "topic" {
		t.Fatalf("exchange kind = %q", ch.exchKind)
	}
	if ch.queueArgs != nil {
		t.Fatalf("unexpected queue args %v", ch.queueArgs)
	}
}

func TestDeclareTopology_BindsEveryKeyOnceInOrder(t *testing.T) {
	cfg := ordersConfig()
	cfg.RoutingKeys = []string{"order.created", "order.cancelled", "payment.captured"}
	ch := newFakeChannel()
	if _, err := DeclareTopology(ch, cfg); err != nil {
		t.Fatalf("DeclareTopology: %v", err)
	}
	calls := ch.Calls()
	binds := calls[2:]
	if len(binds) != len(cfg.RoutingKeys) {
		t.Fatalf("got %d bind calls, want %d: %q", len(binds), len(cfg.RoutingKeys), calls)
	}
	for i, key := range cfg.RoutingKeys {
		if want := "queue.bind orders events " + key; binds[i] != want {
			t.Fatalf("bind %d = %q, want %q", i, binds[i], want)
		}
	}
}

func TestDeclareTopology_AbortsOnFirstFailure(t *testing.T) {
	cases := []struct {
		name      string
		failOn    string
		wantCalls int
	}{
		{"queue", "queue.declare orders durable=true auto_delete=false exclusive=false", 1},
		{"exchange", "exchange.declare events durable=true auto_delete=false internal=false", 2},
		{"first bind", "queue.bind orders events order.created", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ordersConfig()
			cfg.RoutingKeys = []string{"order.created", "order.cancelled"}
			ch := newFakeChannel()
			ch.failOn = tc.failOn

			_, err := DeclareTopology(ch, cfg)
			if !errors.Is(err, errBroker) {
				t.Fatalf("err = %v, want wrapped errBroker", err)
			}
			var se *SetupError
			if !errors.As(err, &se) {
				t.Fatalf("err = %T, want *SetupError", err)
			}
			if n := len(ch.Calls()); n != tc.wantCalls {
				t.Fatalf("made %d calls after failure, want %d: %q", n, tc.wantCalls, ch.Calls())
			}
		})
	}
}

func TestDeclareTopology_QueueArgs(t *testing.T) {
	cfg := ordersConfig()
	cfg.DeadLetterExchange = "events.dlx"
	cfg.QueueType = "quorum"
	ch := newFakeChannel()
	if _, err := DeclareTopology(ch, cfg); err != nil {
		t.Fatalf("DeclareTopology: %v", err)
	}
	if ch.queueArgs["x-dead-letter-exchange"] != "events.dlx" || ch.queueArgs["x-queue-type"] != "quorum" {
		t.Fatalf("queue args = %v", ch.queueArgs)
	}
}

func TestBrokerConfig_Validate(t *testing.T) {
	ok := ordersConfig()
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	mutate := map[string]func(*BrokerConfig){
		"no queue":      func(c *BrokerConfig) { c.QueueName = "" },
		"no exchange":   func(c *BrokerConfig) { c.ExchangeName = "" },
		"bad kind":      func(c *BrokerConfig) { c.ExchangeKind = "x-delayed-message" },
		"no keys":       func(c *BrokerConfig) { c.RoutingKeys = nil },
		"empty key":     func(c *BrokerConfig) { c.RoutingKeys = []string{""} },
		"duplicate key": func(c *BrokerConfig) { c.RoutingKeys = []string{"a", "a"} },
	}
	for name, fn := range mutate {
		c := ordersConfig()
		fn(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestParseExchangeKind(t *testing.T) {
	for in, want := range map[string]ExchangeKind{
		"direct":  ExchangeDirect,
		"Fanout":  ExchangeFanout,
		" topic ": ExchangeTopic,
		"headers": ExchangeHeaders,
	} {
		got, err := ParseExchangeKind(in)
		if err != nil || got != want {
			t.Errorf("ParseExchangeKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExchangeKind("x-delayed-message"); !errors.Is(err, ErrInvalidExchangeKind) {
		t.Errorf("want ErrInvalidExchangeKind, got %v", err)
	}
}
