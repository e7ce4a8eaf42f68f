package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/password-policy/pkg/messaging"
)

// DefaultTopic is the channel policy events are relayed on.
const DefaultTopic = "password_policy.events"

// BrokerHandler returns a Handler that relays events to a message broker as Envelopes.
func BrokerHandler(broker messaging.Publisher, topic string) Handler {
	if topic == "" {
		topic = DefaultTopic
	}
	return func(ctx context.Context, e Event) error {
		env := NewEnvelope(e, time.Now())
		if err := broker.Publish(ctx, topic, env); err != nil {
			return fmt.Errorf("failed to publish %s: %w", env.EventType, err)
		}
		return nil
	}
}

// DecodeEnvelope parses a relayed event.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	return env, nil
}
