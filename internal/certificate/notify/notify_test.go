package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/platform/logger"
	"trainingcenter/pkg/platform/circuit"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func event(displayID string) Event {
	return Event{Kind: KindCertificateIssued, StudentID: "S1", CourseName: "Wiring", DisplayID: displayID}
}

func TestIssued(t *testing.T) {
	c := &models.Certificate{ID: "abc", DisplayID: "CERT-2024-0001", StudentID: "S", CourseName: "C", Version: 2}
	ev := Issued(c)
	assert.Equal(t, KindCertificateIssued, ev.Kind)
	assert.Equal(t, "C", ev.CourseName)
	assert.Equal(t, 2, ev.Version)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"certificate_issued"`)
	assert.Contains(t, string(raw), `"studentId":"S"`)
	assert.Contains(t, string(raw), `"courseName":"C"`)
}

func TestAsync(t *testing.T) {
	t.Run("delivers queued events and drains on close", func(t *testing.T) {
		primary := &recordingPublisher{}
		m := metrics.New(prometheus.NewRegistry())
		a := NewAsync(primary, WithLogger(logger.Discard()), WithMetrics(m))

		for _, id := range []string{"CERT-2024-0001", "CERT-2024-0002", "CERT-2024-0003"} {
			a.Notify(context.Background(), event(id))
		}
		require.NoError(t, a.Close(context.Background()))

		assert.Equal(t, 3, primary.count())
		assert.Equal(t, float64(3), testutil.ToFloat64(m.Notifications.WithLabelValues(OutcomeDelivered)))
	})

	t.Run("caller cancellation does not cancel delivery", func(t *testing.T) {
		primary := &recordingPublisher{}
		a := NewAsync(primary, WithLogger(logger.Discard()))

		ctx, cancel := context.WithCancel(context.Background())
		a.Notify(ctx, event("CERT-2024-0001"))
		cancel()
		require.NoError(t, a.Close(context.Background()))
		assert.Equal(t, 1, primary.count())
	})

	t.Run("falls back and opens the breaker on failures", func(t *testing.T) {
		primary := &recordingPublisher{err: errors.New("broker down")}
		fallback := &recordingPublisher{}
		breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
		m := metrics.New(prometheus.NewRegistry())
		a := NewAsync(primary,
			WithFallback(fallback),
			WithBreaker(breaker),
			WithLogger(logger.Discard()),
			WithMetrics(m),
		)

		for range 4 {
			a.Notify(context.Background(), event("CERT-2024-0001"))
		}
		require.NoError(t, a.Close(context.Background()))

		assert.True(t, breaker.IsOpen())
		assert.Equal(t, 4, fallback.count())
		assert.Equal(t, float64(4), testutil.ToFloat64(m.Notifications.WithLabelValues(OutcomeFallback)))
	})

	t.Run("failure without fallback is counted, not returned", func(t *testing.T) {
		primary := &recordingPublisher{err: errors.New("broker down")}
		m := metrics.New(prometheus.NewRegistry())
		a := NewAsync(primary, WithLogger(logger.Discard()), WithMetrics(m))

		a.Notify(context.Background(), event("CERT-2024-0001"))
		require.NoError(t, a.Close(context.Background()))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues(OutcomeFailed)))
	})

	t.Run("drops when the queue is full", func(t *testing.T) {
		primary := &recordingPublisher{block: make(chan struct{})}
		m := metrics.New(prometheus.NewRegistry())
		a := NewAsync(primary, WithBuffer(1), WithLogger(logger.Discard()), WithMetrics(m))

		// One in flight, one queued, the rest dropped.
		for range 10 {
			a.Notify(context.Background(), event("CERT-2024-0001"))
		}
		close(primary.block)
		require.NoError(t, a.Close(context.Background()))

		delivered := testutil.ToFloat64(m.Notifications.WithLabelValues(OutcomeDelivered))
		dropped := testutil.ToFloat64(m.Notifications.WithLabelValues(OutcomeDropped))
		assert.Equal(t, float64(10), delivered+dropped)
		assert.GreaterOrEqual(t, dropped, float64(8))
	})

	t.Run("notify after close is dropped", func(t *testing.T) {
		primary := &recordingPublisher{}
		a := NewAsync(primary, WithLogger(logger.Discard()))
		require.NoError(t, a.Close(context.Background()))
		require.NoError(t, a.Close(context.Background()), "close is idempotent")

		assert.NotPanics(t, func() { a.Notify(context.Background(), event("CERT-2024-0001")) })
		assert.Zero(t, primary.count())
	})

	t.Run("close gives up when its context ends", func(t *testing.T) {
		primary := &recordingPublisher{block: make(chan struct{})}
		a := NewAsync(primary, WithLogger(logger.Discard()))
		a.Notify(context.Background(), event("CERT-2024-0001"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
		close(primary.block)
	})
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("keys records by student", func(t *testing.T) {
		producer := &fakeProducer{}
		p := NewKafkaPublisher(producer, "certificates.issued")

		require.NoError(t, p.Publish(context.Background(), event("CERT-2024-0001")))

		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "certificates.issued", rec.Topic)
		assert.Equal(t, []byte("S1"), rec.Key)
		var got Event
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.Equal(t, "CERT-2024-0001", got.DisplayID)
	})

	t.Run("surfaces produce errors", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("not leader")}
		p := NewKafkaPublisher(producer, "certificates.issued")
		assert.ErrorContains(t, p.Publish(context.Background(), event("CERT-2024-0001")), "not leader")
	})
}
