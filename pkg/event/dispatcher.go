package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

// Dispatcher delivers events to whoever listens. Dispatch must not block on handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Event)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, Event) {}

// Nop is the dispatcher used when the host wires none.
var Nop Dispatcher = nopDispatcher{}

// Async runs every subscribed handler in its own goroutine. A handler panic or error is
// logged and counted, never propagated.
type Async struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
	logger   *logger.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func NewAsync(log *logger.Logger, m *metrics.Metrics) *Async {
	return &Async{
		handlers: make(map[EventType][]Handler),
		logger:   log,
		metrics:  m,
	}
}

// Subscribe registers h for the given types, or for every type when none are given.
func (d *Async) Subscribe(h Handler, types ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(types) == 0 {
		d.all = append(d.all, h)
		return
	}
	for _, t := range types {
		d.handlers[t] = append(d.handlers[t], h)
	}
}

func (d *Async) Dispatch(ctx context.Context, e Event) {
	d.mu.RLock()
	hs := make([]Handler, 0, len(d.handlers[e.EventType()])+len(d.all))
	hs = append(hs, d.handlers[e.EventType()]...)
	hs = append(hs, d.all...)
	d.mu.RUnlock()

	// handlers outlive the request that triggered them
	ctx = context.WithoutCancel(ctx)
	for _, h := range hs {
		d.wg.Add(1)
		go d.run(ctx, h, e)
	}
}

func (d *Async) run(ctx context.Context, h Handler, e Event) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.fail(e, fmt.Errorf("handler panic: %v", r))
		}
	}()
	if err := h(ctx, e); err != nil {
		d.fail(e, err)
	}
}

func (d *Async) fail(e Event, err error) {
	d.logger.Error(err, "Event handler failed", "event_type", string(e.EventType()))
	d.metrics.ObserveDispatchFailure(string(e.EventType()))
}

// Wait blocks until in-flight handlers finish. Used on shutdown and in tests.
func (d *Async) Wait() {
	d.wg.Wait()
}
