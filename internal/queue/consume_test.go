package queue

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func delivery(acker *fakeAcker, tag uint64, retryCount any) amqp.Delivery {
	headers := amqp.Table{}
	if retryCount != nil {
		headers[RetryCountHeader] = retryCount
	}
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  tag,
		Headers:      headers,
		ContentType:  ContentType,
		MessageId:    "req-1",
		Body:         []byte(`{"request_id":"req-1","user_email":"a@example.com"}`),
	}
}

// runConsumer starts Consume in the background and returns a stop function
// that cancels it and waits for it to return.
func runConsumer(t *testing.T, c *Client, handler Handler) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx, "createWodQueue", handler) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not stop")
			return nil
		}
	}
}

func TestConsume_Settlement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		retryCount    any
		decision      Decision
		publishErr    error
		wantAcks      int
		wantNack      *nackCall
		wantPublished int
		wantOutcome   Outcome
	}{
		{
			name:        "ack removes the message",
			decision:    Ack,
			wantAcks:    1,
			wantOutcome: OutcomeAcked,
		},
		{
			name:        "reject dead-letters without requeue",
			decision:    Reject,
			wantNack:    &nackCall{tag: 1, requeue: false},
			wantOutcome: OutcomeDeadLettered,
		},
		{
			name:          "retry below ceiling republishes and acks",
			retryCount:    int32(0),
			decision:      Retry,
			wantAcks:      1,
			wantPublished: 1,
			wantOutcome:   OutcomeRetried,
		},
		{
			name:        "retry at ceiling dead-letters",
			retryCount:  int32(2),
			decision:    Retry,
			wantNack:    &nackCall{tag: 1, requeue: false},
			wantOutcome: OutcomeDeadLettered,
		},
		{
			name:        "failed republish requeues the original",
			retryCount:  int32(1),
			decision:    Retry,
			publishErr:  amqp.ErrClosed,
			wantNack:    &nackCall{tag: 1, requeue: true},
			wantOutcome: OutcomeRequeued,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			obs := &countingObserver{}
			ch := newFakeChannel()
			ch.publishErr = tc.publishErr
			c, err := NewClient(Config{URL: "amqp://localhost", MaxAttempts: 3}, testLogger(),
				WithObserver(obs),
				WithDialer(func(string, amqp.Config) (Connection, error) {
					return &fakeConnection{ch: ch}, nil
				}))
			require.NoError(t, err)
			require.NoError(t, c.Connect(context.Background()))

			acker := &fakeAcker{}
			var seen Message
			stop := runConsumer(t, c, func(_ context.Context, msg Message) Decision {
				seen = msg
				return tc.decision
			})

			ch.deliveries <- delivery(acker, 1, tc.retryCount)
			require.Eventually(t, func() bool { return acker.settled() == 1 }, time.Second, time.Millisecond)
			require.NoError(t, stop())

			acks, nacks := acker.snapshot()
			assert.Len(t, acks, tc.wantAcks)
			if tc.wantNack != nil {
				require.Len(t, nacks, 1)
				assert.Equal(t, *tc.wantNack, nacks[0])
			} else {
				assert.Empty(t, nacks)
			}

			published := ch.publishedCalls()
			require.Len(t, published, tc.wantPublished)
			if tc.wantPublished > 0 {
				assert.Equal(t, "createWodQueue", published[0].key)
				assert.Equal(t, int32(RetryCount(amqp.Table{RetryCountHeader: tc.retryCount})+1), published[0].msg.Headers[RetryCountHeader])
				assert.Equal(t, amqp.Persistent, published[0].msg.DeliveryMode)
				assert.Equal(t, []byte(`{"request_id":"req-1","user_email":"a@example.com"}`), published[0].msg.Body)
			}

			assert.Equal(t, RetryCount(amqp.Table{RetryCountHeader: tc.retryCount}), seen.Attempt)
			assert.Equal(t, 1, obs.outcomes[tc.wantOutcome])
			assert.Equal(t, 1, ch.qos)
			assert.True(t, ch.cancelled)
		})
	}
}

func TestConsume_RetryUntilDeadLettered(t *testing.T) {
	t.Parallel()

	c, ch, _ := connectedClient(t, Config{MaxAttempts: 3})
	acker := &fakeAcker{}
	attempts := 0

	stop := runConsumer(t, c, func(context.Context, Message) Decision {
		attempts++
		return Retry
	})

	ch.deliveries <- delivery(acker, 1, nil)
	for i := 1; i < 3; i++ {
		require.Eventually(t, func() bool { return len(ch.publishedCalls()) == i }, time.Second, time.Millisecond)
		republished := ch.publishedCalls()[i-1].msg
		ch.deliveries <- amqp.Delivery{
			Acknowledger: acker,
			DeliveryTag:  uint64(i + 1),
			Headers:      republished.Headers,
			Body:         republished.Body,
		}
	}
	require.Eventually(t, func() bool { return acker.settled() == 3 }, time.Second, time.Millisecond)
	require.NoError(t, stop())

	acks, nacks := acker.snapshot()
	assert.Equal(t, []uint64{1, 2}, acks)
	assert.Equal(t, []nackCall{{tag: 3, requeue: false}}, nacks)
	assert.Equal(t, 3, attempts)
}

func TestConsume_PanicIsTreatedAsRetry(t *testing.T) {
	t.Parallel()

	c, ch, _ := connectedClient(t, Config{MaxAttempts: 3})
	acker := &fakeAcker{}

	stop := runConsumer(t, c, func(context.Context, Message) Decision {
		panic("boom")
	})

	ch.deliveries <- delivery(acker, 1, int32(0))
	require.Eventually(t, func() bool { return acker.settled() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, stop())

	acks, _ := acker.snapshot()
	assert.Equal(t, []uint64{1}, acks)
	assert.Len(t, ch.publishedCalls(), 1)
}

func TestConsume_ShutdownRequeuesInFlightMessage(t *testing.T) {
	t.Parallel()

	c, ch, _ := connectedClient(t, Config{MaxAttempts: 3})
	acker := &fakeAcker{}
	started := make(chan struct{})

	stop := runConsumer(t, c, func(ctx context.Context, _ Message) Decision {
		close(started)
		<-ctx.Done()
		return Retry
	})

	ch.deliveries <- delivery(acker, 1, int32(0))
	<-started
	require.NoError(t, stop())

	acks, nacks := acker.snapshot()
	assert.Empty(t, acks)
	assert.Equal(t, []nackCall{{tag: 1, requeue: true}}, nacks)
	assert.Empty(t, ch.publishedCalls())
}

func TestConsume_ShutdownStillDeadLettersRejectedMessage(t *testing.T) {
	t.Parallel()

	c, ch, _ := connectedClient(t, Config{MaxAttempts: 3})
	acker := &fakeAcker{}
	started := make(chan struct{})

	stop := runConsumer(t, c, func(ctx context.Context, _ Message) Decision {
		close(started)
		<-ctx.Done()
		return Reject
	})

	ch.deliveries <- delivery(acker, 1, int32(0))
	<-started
	require.NoError(t, stop())

	acks, nacks := acker.snapshot()
	assert.Empty(t, acks)
	assert.Equal(t, []nackCall{{tag: 1, requeue: false}}, nacks)
	assert.Empty(t, ch.publishedCalls())
}

func TestConsume_ClosedDeliveryChannel(t *testing.T) {
	t.Parallel()

	c, ch, _ := connectedClient(t, Config{})
	close(ch.deliveries)

	err := c.Consume(context.Background(), "createWodQueue", func(context.Context, Message) Decision { return Ack })
	assert.ErrorIs(t, err, ErrConnection)
}

func TestConsume_NotConnected(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{URL: "amqp://localhost"}, testLogger())
	require.NoError(t, err)

	err = c.Consume(context.Background(), "q", func(context.Context, Message) Decision { return Ack })
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRetryCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value any
		want  int
	}{
		{nil, 0},
		{int32(2), 2},
		{int64(4), 4},
		{int(1), 1},
		{uint8(3), 3},
		{"5", 5},
		{"x", 0},
		{1.0, 1},
	}
	for _, tc := range tests {
		headers := amqp.Table{}
		if tc.value != nil {
			headers[RetryCountHeader] = tc.value
		}
		assert.Equal(t, tc.want, RetryCount(headers), "%#v", tc.value)
	}
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ack", Ack.String())
	assert.Equal(t, "retry", Retry.String())
	assert.Equal(t, "reject", Reject.String())
	assert.Equal(t, "decision(9)", Decision(9).String())
}
