package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Decision is a handler's verdict on one delivery.
type Decision int

const (
	// Ack removes the message permanently.
	Ack Decision = iota
	// Retry schedules another attempt, or dead-letters the message once the
	// redelivery ceiling is reached.
	Retry
	// Reject dead-letters the message immediately.
	Reject
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case Reject:
		return "reject"
	default:
		return "decision(" + strconv.Itoa(int(d)) + ")"
	}
}

// Message is a delivery as seen by a Handler.
type Message struct {
	Body        []byte
	MessageID   string
	Attempt     int
	Redelivered bool
	Timestamp   time.Time
}

// Handler processes one message. It must not block past ctx cancellation.
type Handler func(ctx context.Context, msg Message) Decision

// Consume delivers messages from queue to handler one at a time (prefetch 1,
// manual acknowledgement) until ctx is cancelled, in which case it returns nil,
// or until the broker closes the delivery stream, in which case it returns
// ErrConnection.
//
// A delivery whose handling was interrupted by cancellation is requeued rather
// than acknowledged.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("%w: set qos: %w", ErrConnection, err)
	}

	deliveries, err := ch.Consume(queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: start consuming %s: %w", ErrConnection, queue, err)
	}

	c.logger.Info("consuming",
		slog.String("queue", queue),
		slog.Int("prefetch", c.cfg.Prefetch),
		slog.Int("max_attempts", c.cfg.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(c.cfg.ConsumerTag, false); err != nil {
				c.logger.Warn("consumer cancel failed", slog.String("error", err.Error()))
			}
			c.logger.Info("consumer stopping due to cancellation", slog.String("queue", queue))
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: delivery channel closed", ErrConnection)
			}
			c.handleDelivery(ctx, ch, queue, d, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, ch Channel, queue string, d amqp.Delivery, handler Handler) {
	msg := Message{
		Body:        d.Body,
		MessageID:   d.MessageId,
		Attempt:     RetryCount(d.Headers),
		Redelivered: d.Redelivered,
		Timestamp:   d.Timestamp,
	}
	log := c.logger.With(
		slog.String("queue", queue),
		slog.Uint64("delivery_tag", d.DeliveryTag),
		slog.String("message_id", d.MessageId),
		slog.Int("attempt", msg.Attempt))

	if ctx.Err() != nil {
		c.requeue(log, queue, d)
		return
	}

	decision := c.invoke(ctx, log, handler, msg)
	if decision == Retry && ctx.Err() != nil {
		log.Info("processing interrupted by shutdown")
		c.requeue(log, queue, d)
		return
	}

	switch decision {
	case Ack:
		c.ack(log, queue, d)
	case Reject:
		c.deadLetter(log, queue, d)
	default:
		c.retry(ctx, ch, log, queue, d, msg.Attempt)
	}
}

func (c *Client) invoke(ctx context.Context, log *slog.Logger, handler Handler, msg Message) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", slog.Any("panic", r))
			decision = Retry
		}
	}()
	return handler(ctx, msg)
}

// retry republishes a copy carrying an incremented x-retry-count and acks the
// original. Once attempt+1 reaches MaxAttempts the delivery is dead-lettered.
// If the copy cannot be published the original is requeued so it is not lost.
func (c *Client) retry(ctx context.Context, ch Channel, log *slog.Logger, queue string, d amqp.Delivery, attempt int) {
	next := attempt + 1
	if next >= c.cfg.MaxAttempts {
		log.Warn("redelivery ceiling reached",
			slog.Int("max_attempts", c.cfg.MaxAttempts))
		c.deadLetter(log, queue, d)
		return
	}

	headers := make(amqp.Table, len(d.Headers)+1)
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[RetryCountHeader] = int32(next)

	msg := amqp.Publishing{
		Headers:      headers,
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Body:         d.Body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		log.Error("failed to republish for retry", slog.String("error", err.Error()))
		c.requeue(log, queue, d)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack after republish failed", slog.String("error", err.Error()))
		return
	}
	log.Info("message scheduled for retry", slog.Int("next_attempt", next))
	c.observer.Settled(queue, OutcomeRetried)
}

func (c *Client) ack(log *slog.Logger, queue string, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", slog.String("error", err.Error()))
		return
	}
	c.observer.Settled(queue, OutcomeAcked)
}

func (c *Client) requeue(log *slog.Logger, queue string, d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		log.Error("requeue failed", slog.String("error", err.Error()))
		return
	}
	c.observer.Settled(queue, OutcomeRequeued)
}

func (c *Client) deadLetter(log *slog.Logger, queue string, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Error("dead-letter nack failed", slog.String("error", err.Error()))
		return
	}
	log.Warn("message dead-lettered")
	c.observer.Settled(queue, OutcomeDeadLettered)
}

// RetryCount reads the x-retry-count header, returning 0 when it is absent or
// unparseable.
func RetryCount(headers amqp.Table) int {
	switch v := headers[RetryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
