package queue

import (
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeChannel records every broker call in order.
type fakeChannel struct {
	mu    sync.Mutex
	calls []string

	failOn     string // call prefix that returns errBroker
	deliveries chan amqp.Delivery
	cancels    chan string
	queueArgs  amqp.Table
	exchKind   string
	prefetch   int
}

var errBroker = errors.New("broker said no")

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery)}
}

func (f *fakeChannel) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failOn != "" && call == f.failOn {
		return errBroker
	}
	return nil
}

func (f *fakeChannel) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if err := f.record(fmt.Sprintf("queue.declare %s durable=%t auto_delete=%t exclusive=%t", name, durable, autoDelete, exclusive)); err != nil {
		return amqp.Queue{}, err
	}
	f.queueArgs = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchKind = kind
	return f.record(fmt.Sprintf("exchange.declare %s durable=%t auto_delete=%t internal=%t", name, durable, autoDelete, internal))
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return f.record(fmt.Sprintf("queue.bind %s %s %s", name, exchange, key))
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.prefetch = prefetchCount
	return f.record("basic.qos")
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if err := f.record(fmt.Sprintf("basic.consume %s auto_ack=%t", queue, autoAck)); err != nil {
		return nil, err
	}
	return f.deliveries, nil
}

func (f *fakeChannel) NotifyCancel(c chan string) chan string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = c
	return c
}

func (f *fakeChannel) cancel(tag string) {
	f.mu.Lock()
	c := f.cancels
	f.mu.Unlock()
	c <- tag
}

// disposition is one ack or nack observed by fakeAcker.
type disposition struct {
	Tag     uint64
	Ack     bool
	Requeue bool
}

type fakeAcker struct {
	mu   sync.Mutex
	log  []disposition
	fail bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errBroker
	}
	a.log = append(a.log, disposition{Tag: tag, Ack: true})
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errBroker
	}
	a.log = append(a.log, disposition{Tag: tag, Requeue: requeue})
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) Dispositions() []disposition {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]disposition, len(a.log))
	copy(out, a.log)
	return out
}

func delivery(a amqp.Acknowledger, tag uint64, key, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: a,
		DeliveryTag:  tag,
		RoutingKey:   key,
		Body:         []byte(body),
	}
}
