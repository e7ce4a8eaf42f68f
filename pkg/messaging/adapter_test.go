package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
)

type chanBroker struct {
	ch chan messaging.Message
}

func (b *chanBroker) Publish(context.Context, string, interface{}) error { return nil }

func (b *chanBroker) Subscribe(context.Context, string) (<-chan messaging.Message, error) {
	return b.ch, nil
}

func (b *chanBroker) Close() error { return nil }

func TestBrokerAdapterAcksOnlyHandledMessages(t *testing.T) {
	broker := &chanBroker{ch: make(chan messaging.Message, 2)}
	adapter := messaging.NewBrokerAdapter(broker, logger.Nop())

	var mu sync.Mutex
	acked := map[string]bool{}
	ack := func(id string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			acked[id] = true
			return nil
		}
	}

	handled := make(chan string, 2)
	require.NoError(t, adapter.Subscribe(context.Background(), "events", func(data []byte) error {
		handled <- string(data)
		if string(data) == "bad" {
			return errors.New("boom")
		}
		return nil
	}))

	broker.ch <- messaging.NewMessage("1-0", []byte("good"), ack("1-0"))
	broker.ch <- messaging.NewMessage("2-0", []byte("bad"), ack("2-0"))
	close(broker.ch)

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(time.Second):
			t.Fatal("handler not called")
		}
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return acked["1-0"]
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.False(t, acked["2-0"])
	mu.Unlock()
}

func TestMessageAckWithoutCallback(t *testing.T) {
	assert.NoError(t, messaging.Message{ID: "1-0"}.Ack(context.Background()))
}
