package messaging

import (
	"context"
)

// Publisher publishes a JSON-serialisable message on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Message is one delivery from a Broker. Unacknowledged messages are delivered
// again to the same consumer group.
type Message struct {
	ID      string
	Payload []byte
	ack     func(ctx context.Context) error
}

func NewMessage(id string, payload []byte, ack func(ctx context.Context) error) Message {
	return Message{ID: id, Payload: payload, ack: ack}
}

// Ack confirms the message was handled.
func (m Message) Ack(ctx context.Context) error {
	if m.ack == nil {
		return nil
	}
	return m.ack(ctx)
}

type Broker interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
	Close() error
}

// MessageBroker is the callback-style view of a Broker used by consumers.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}
