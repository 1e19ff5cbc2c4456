package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/redact"
)

// RetryCountHeader carries the number of failed processing attempts.
const RetryCountHeader = "x-retry-count"

// Defaults applied by NewClient when the corresponding Config field is unset.
const (
	DefaultMaxAttempts = 3
	DefaultPrefetch    = 1
	DefaultConsumerTag = "coach-consumer"
)

// ErrEmptyURL is returned by NewClient when no broker URL is configured.
var ErrEmptyURL = errors.New("broker url cannot be empty")

// Channel is the subset of *amqp.Channel used by Client.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// Connection is the subset of *amqp.Connection used by Client.
type Connection interface {
	Channel() (Channel, error)
	NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking
	IsClosed() bool
	Close() error
}

// Dialer opens a connection to the broker at url.
type Dialer func(url string, cfg amqp.Config) (Connection, error)

// DialAMQP is the production Dialer.
func DialAMQP(url string, cfg amqp.Config) (Connection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Config holds connection and delivery settings for a Client.
type Config struct {
	URL            string
	Heartbeat      time.Duration
	BlockedTimeout time.Duration
	// MaxAttempts is the total number of processing attempts a message gets
	// before it is dead-lettered.
	MaxAttempts int
	Prefetch    int
	ConsumerTag string
}

// Outcome is how a consumed delivery was settled with the broker.
type Outcome string

// Settlement outcomes reported to an Observer.
const (
	OutcomeAcked        Outcome = "acked"
	OutcomeRetried      Outcome = "retried"
	OutcomeRequeued     Outcome = "requeued"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Observer receives queue events, typically to export metrics.
type Observer interface {
	Published(queue string)
	PublishFailed(queue string)
	Settled(queue string, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) Published(string)        {}
func (nopObserver) PublishFailed(string)    {}
func (nopObserver) Settled(string, Outcome) {}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the AMQP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithObserver registers an Observer for publish and settle events.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithSleep replaces the wait used between connection attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// Client is a RabbitMQ client owning one connection and one channel. Each
// process constructs its own; a Client is never shared across processes.
type Client struct {
	cfg      Config
	dial     Dialer
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger

	mu     sync.Mutex
	conn   Connection
	ch     Channel
	closed bool
}

// NewClient creates a Client. It does not connect.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Prefetch < 1 {
		cfg.Prefetch = DefaultPrefetch
	}
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = DefaultConsumerTag
	}

	c := &Client{
		cfg:      cfg,
		dial:     DialAMQP,
		observer: nopObserver{},
		sleep:    sleepContext,
		logger:   logger.With(slog.String("component", "queue_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens a connection and a channel. Any failure is reported as
// ErrConnection with credentials redacted.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := c.dial(c.cfg.URL, amqp.Config{Heartbeat: c.cfg.Heartbeat})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConnection, redact.Error(err))
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: open channel: %s", ErrConnection, redact.Error(err))
	}

	c.mu.Lock()
	oldConn := c.conn
	c.conn, c.ch = conn, ch
	c.closed = false
	c.mu.Unlock()

	if oldConn != nil && !oldConn.IsClosed() {
		_ = oldConn.Close()
	}

	if c.cfg.BlockedTimeout > 0 {
		go c.watchBlocked(conn)
	}

	c.logger.Info("connected to broker")
	return nil
}

// ConnectWithRetry calls Connect up to attempts times, waiting delay between
// failures. When every attempt fails the last ErrConnection is returned.
func (c *Client) ConnectWithRetry(ctx context.Context, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.Connect(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrConnection) {
			return lastErr
		}

		c.logger.Warn("broker connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", lastErr.Error()))

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// QueueOptions configures the work queue and its dead-letter companion.
type QueueOptions struct {
	MessageTTL         time.Duration
	MaxLength          int
	DeadLetterExchange string
	DeadLetterQueue    string
}

// DefaultQueueOptions returns a 60s TTL, a max length of 100 and dead-lettering
// through the "dlx" exchange into name+"-dead".
func DefaultQueueOptions(name string) QueueOptions {
	return QueueOptions{
		MessageTTL:         60 * time.Second,
		MaxLength:          100,
		DeadLetterExchange: "dlx",
		DeadLetterQueue:    DeadLetterQueueName(name),
	}
}

// DeadLetterQueueName is the conventional DLQ name for a work queue.
func DeadLetterQueueName(name string) string {
	return name + "-dead"
}

// Arguments returns the x-arguments declared on the work queue.
func (o QueueOptions) Arguments() amqp.Table {
	return amqp.Table{
		"x-message-ttl":             int32(o.MessageTTL / time.Millisecond),
		"x-max-length":              int32(o.MaxLength),
		"x-dead-letter-exchange":    o.DeadLetterExchange,
		"x-dead-letter-routing-key": o.DeadLetterQueue,
	}
}

// DeclareQueue idempotently declares the durable dead-letter exchange, the
// durable DLQ bound to it, and the durable work queue that dead-letters into it.
func (c *Client) DeclareQueue(name string, opts QueueOptions) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	if opts.DeadLetterExchange == "" {
		opts.DeadLetterExchange = "dlx"
	}
	if opts.DeadLetterQueue == "" {
		opts.DeadLetterQueue = DeadLetterQueueName(name)
	}

	if err := ch.ExchangeDeclare(opts.DeadLetterExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", opts.DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(opts.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", opts.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(opts.DeadLetterQueue, opts.DeadLetterQueue, opts.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", opts.DeadLetterQueue, err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, opts.Arguments()); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}

	c.logger.Info("queue declared",
		slog.String("queue", name),
		slog.String("dead_letter_queue", opts.DeadLetterQueue))
	return nil
}

// Publish encodes req and publishes it persistently to queue through the
// default exchange.
func (c *Client) Publish(ctx context.Context, queue string, req domain.WodRequest) error {
	body, err := Encode(req)
	if err != nil {
		return err
	}

	ch, err := c.channel()
	if err != nil && c.connectionLost() {
		c.logger.Warn("broker connection lost, reconnecting before publish")
		if cerr := c.Connect(ctx); cerr == nil {
			ch, err = c.channel()
		} else {
			err = cerr
		}
	}
	if err != nil {
		c.observer.PublishFailed(queue)
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	msg := amqp.Publishing{
		Headers:      amqp.Table{RetryCountHeader: int32(0)},
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    req.RequestID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		c.observer.PublishFailed(queue)
		return fmt.Errorf("%w: %s", ErrPublish, redact.Error(err))
	}

	c.observer.Published(queue)
	c.logger.Debug("request published",
		slog.String("queue", queue),
		slog.String("request_id", req.RequestID))
	return nil
}

// QueueDepth returns the number of ready messages in an existing queue.
func (c *Client) QueueDepth(name string) (int, error) {
	ch, err := c.channel()
	if err != nil {
		return 0, err
	}
	q, err := ch.QueueDeclarePassive(name, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %s: %w", name, err)
	}
	return q.Messages, nil
}

// Close releases the channel and the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	ch, conn := c.ch, c.conn
	c.ch, c.conn = nil, nil
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if conn != nil && !conn.IsClosed() {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil || (c.conn != nil && c.conn.IsClosed()) {
		return nil, ErrNotConnected
	}
	return c.ch, nil
}

// connectionLost reports whether a connection existed and was dropped by the
// broker rather than closed by Close.
func (c *Client) connectionLost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.conn != nil && c.conn.IsClosed()
}

// watchBlocked closes conn when the broker keeps it blocked (resource alarm)
// for longer than the configured timeout, so that publishers fail fast.
func (c *Client) watchBlocked(conn Connection) {
	blocked := conn.NotifyBlocked(make(chan amqp.Blocking, 1))

	var timer *time.Timer
	var expired <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case b, ok := <-blocked:
			if !ok {
				return
			}
			if b.Active {
				c.logger.Warn("broker blocked connection", slog.String("reason", b.Reason))
				if timer == nil {
					timer = time.NewTimer(c.cfg.BlockedTimeout)
					expired = timer.C
				}
				continue
			}
			c.logger.Info("broker unblocked connection")
			if timer != nil {
				timer.Stop()
				timer, expired = nil, nil
			}
		case <-expired:
			c.logger.Error("connection blocked past timeout, closing",
				slog.Duration("blocked_timeout", c.cfg.BlockedTimeout))
			timer = nil
			_ = conn.Close()
			return
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
