package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/task"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	require.NotNil(t, c)
	assert.NotNil(t, c.Registry())

	// Separate collectors own separate registries.
	assert.NotPanics(t, func() { NewCollector() })
}

func TestCollector_QueueEvents(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Published("wod-requests")
	c.Published("wod-requests")
	c.PublishFailed("wod-requests")
	c.Settled("wod-requests", queue.OutcomeAcked)
	c.Settled("wod-requests", queue.OutcomeRetried)
	c.Settled("wod-requests", queue.OutcomeRetried)
	c.Settled("wod-requests", queue.OutcomeDeadLettered)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.published.WithLabelValues("wod-requests")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishErrors.WithLabelValues("wod-requests")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.settled.WithLabelValues("wod-requests", "acked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.settled.WithLabelValues("wod-requests", "retried")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.settled.WithLabelValues("wod-requests", "dead_lettered")))
}

func TestCollector_GenerationLifecycle(t *testing.T) {
	t.Parallel()

	c := NewCollector()

	c.GenerationStarted()
	c.GenerationStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inFlight))

	c.GenerationFinished(task.OutcomeSuccess, 150*time.Millisecond)
	c.GenerationFinished(task.OutcomeFailure, 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues(task.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues(task.OutcomeFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.generationDuration))
}

func TestCollector_MalformedDoesNotUnbalanceInFlight(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.GenerationFinished(task.OutcomeMalformed, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues(task.OutcomeMalformed)))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Published("wod-requests")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `coach_messages_published_total{queue="wod-requests"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
