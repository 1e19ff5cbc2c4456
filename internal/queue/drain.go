package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetter is a message read from a dead-letter queue.
type DeadLetter struct {
	Message
	Headers map[string]any
	// Reason is the broker's x-death reason: rejected, expired or maxlen.
	Reason string
	// SourceQueue is the queue the message was dead-lettered from.
	SourceQueue string
}

// Drain reads up to limit messages (all when limit <= 0) from queue and passes
// each to fn. A message is acknowledged only after fn succeeds; on error it is
// requeued and Drain stops. It returns the number of acknowledged messages.
func (c *Client) Drain(ctx context.Context, queue string, limit int, fn func(ctx context.Context, dl DeadLetter) error) (int, error) {
	ch, err := c.channel()
	if err != nil {
		return 0, err
	}

	n := 0
	for limit <= 0 || n < limit {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		d, ok, err := ch.Get(queue, false)
		if err != nil {
			return n, fmt.Errorf("%w: get from %s: %w", ErrConnection, queue, err)
		}
		if !ok {
			return n, nil
		}

		if err := fn(ctx, toDeadLetter(d)); err != nil {
			if nackErr := d.Nack(false, true); nackErr != nil {
				c.logger.Error("requeue after drain failure failed", "error", nackErr)
			}
			return n, err
		}
		if err := d.Ack(false); err != nil {
			return n, fmt.Errorf("%w: ack drained message: %w", ErrConnection, err)
		}
		n++
	}
	return n, nil
}

func toDeadLetter(d amqp.Delivery) DeadLetter {
	dl := DeadLetter{
		Message: Message{
			Body:        d.Body,
			MessageID:   d.MessageId,
			Attempt:     RetryCount(d.Headers),
			Redelivered: d.Redelivered,
			Timestamp:   d.Timestamp,
		},
		Headers: make(map[string]any, len(d.Headers)),
	}
	for k, v := range d.Headers {
		dl.Headers[k] = v
	}

	deaths, _ := d.Headers["x-death"].([]any)
	if len(deaths) > 0 {
		if death, ok := deaths[0].(amqp.Table); ok {
			dl.Reason, _ = death["reason"].(string)
			dl.SourceQueue, _ = death["queue"].(string)
		}
	}
	return dl
}
