package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

type testEvent struct{ t EventType }

func (e testEvent) EventType() EventType { return e.t }
func (e testEvent) Payload() map[string]interface{} { return map[string]interface{}{"k": "v"} }

func TestAsyncRoutesByType(t *testing.T) {
	d := NewAsync(logger.Nop(), nil)
	var changed, all int32

	d.Subscribe(func(context.Context, Event) error { atomic.AddInt32(&changed, 1); return nil }, "password_changed")
	d.Subscribe(func(context.Context, Event) error { atomic.AddInt32(&all, 1); return nil })

	d.Dispatch(context.Background(), testEvent{t: "password_changed"})
	d.Dispatch(context.Background(), testEvent{t: "password_expired"})
	d.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&changed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&all))
}

func TestAsyncSwallowsHandlerFailures(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	d := NewAsync(logger.Nop(), m)

	d.Subscribe(func(context.Context, Event) error { return errors.New("smtp down") })
	d.Subscribe(func(context.Context, Event) error { panic("bad handler") })

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), testEvent{t: "password_changed"})
	})
	d.Wait()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventDispatchFailures.WithLabelValues("password_changed")))
}

func TestAsyncSurvivesCancelledContext(t *testing.T) {
	d := NewAsync(logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	var mu sync.Mutex
	d.Subscribe(func(ctx context.Context, _ Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = ctx.Err()
		return nil
	})
	d.Dispatch(ctx, testEvent{t: "x"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, got)
}

type recordingPublisher struct {
	channel string
	message interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message interface{}) error {
	p.channel, p.message = channel, message
	return nil
}

func TestBrokerHandlerPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	h := BrokerHandler(pub, "")

	require.NoError(t, h(context.Background(), testEvent{t: "password_changed"}))
	assert.Equal(t, DefaultTopic, pub.channel)

	env, ok := pub.message.(Envelope)
	require.True(t, ok)
	assert.Equal(t, EventType("password_changed"), env.EventType)
	assert.Equal(t, "v", env.Payload["k"])
}

func TestNopDispatcher(t *testing.T) {
	assert.NotPanics(t, func() { Nop.Dispatch(context.Background(), testEvent{t: "x"}) })
}
