package messaging

import (
	"context"

	"github.com/jwalitptl/password-policy/pkg/logger"
)

type BrokerAdapter struct {
	broker Broker
	logger *logger.Logger
}

func NewBrokerAdapter(broker Broker, log *logger.Logger) MessageBroker {
	return &BrokerAdapter{broker: broker, logger: log}
}

func (a *BrokerAdapter) Publish(ctx context.Context, topic string, payload interface{}) error {
	return a.broker.Publish(ctx, topic, payload)
}

func (a *BrokerAdapter) Close() error {
	return a.broker.Close()
}

// Subscribe feeds every message on topic to handler until ctx is done. A message
// is acknowledged only when handler returns nil; failures stay pending and are
// redelivered on the next start.
func (a *BrokerAdapter) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	msgs, err := a.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg.Payload); err != nil {
				a.logger.Error(err, "Failed to handle message", "topic", topic, "message_id", msg.ID)
				continue
			}
			if err := msg.Ack(ctx); err != nil {
				a.logger.Error(err, "Failed to acknowledge message", "topic", topic, "message_id", msg.ID)
			}
		}
	}()

	return nil
}
