package queue

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type nackCall struct {
	tag     uint64
	requeue bool
}

type fakeAcker struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []nackCall
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, nackCall{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) settled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acks) + len(a.nacks)
}

func (a *fakeAcker) snapshot() ([]uint64, []nackCall) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...), append([]nackCall(nil), a.nacks...)
}

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	queues     map[string]amqp.Table
	bindings   [][3]string
	qos        int
	published  []publishCall
	publishErr error
	deliveries chan amqp.Delivery
	pending    []amqp.Delivery
	depth      int
	cancelled  bool
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  map[string]string{},
		queues:     map[string]amqp.Table{},
		deliveries: make(chan amqp.Delivery, 8),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return amqp.Queue{Name: name, Messages: f.depth}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, [3]string{name, key, exchange})
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qos = prefetchCount
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Get(queue string, autoAck bool) (amqp.Delivery, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return amqp.Delivery{}, false, nil
	}
	d := f.pending[0]
	f.pending = f.pending[1:]
	return d, true, nil
}

func (f *fakeChannel) Cancel(consumer string, noWait bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) publishedCalls() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishCall(nil), f.published...)
}

type fakeConnection struct {
	mu      sync.Mutex
	ch      *fakeChannel
	blocked chan amqp.Blocking
	closed  bool
}

func (c *fakeConnection) Channel() (Channel, error) {
	return c.ch, nil
}

func (c *fakeConnection) NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = receiver
	return receiver
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		if c.blocked != nil {
			close(c.blocked)
		}
	}
	return nil
}

func (c *fakeConnection) blockedChan() chan amqp.Blocking {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}
