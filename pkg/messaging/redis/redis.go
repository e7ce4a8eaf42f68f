package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/password-policy/pkg/circuitbreaker"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
)

const (
	payloadField = "payload"
	readCount    = 16
	readBlock    = 5 * time.Second
)

// RedisBroker carries events over redis streams. Every subscriber of one Group
// shares the stream, so each event is handled once across worker replicas.
type RedisBroker struct {
	client   *redis.Client
	cb       *circuitbreaker.CircuitBreaker
	logger   *logger.Logger
	group    string
	consumer string
	maxLen   int64
	backoff  time.Duration
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
	// Group is the consumer group subscribers join.
	Group string
	// Consumer names this process inside Group. Defaults to hostname-pid.
	Consumer string
	// MaxLen trims streams approximately to this many entries. 0 disables trimming.
	MaxLen int64
}

func NewRedisBroker(ctx context.Context, config Config, log *logger.Logger) (messaging.Broker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b := &RedisBroker{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-broker",
			MaxFailures: 10,
			Timeout:     5 * time.Second,
		}),
		logger:   log,
		group:    config.Group,
		consumer: config.Consumer,
		maxLen:   config.MaxLen,
		backoff:  config.RetryBackoff,
	}
	if b.group == "" {
		b.group = "default"
	}
	if b.consumer == "" {
		host, _ := os.Hostname()
		b.consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if b.backoff <= 0 {
		b.backoff = time.Second
	}
	return b, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.cb.Execute(func() error {
		return b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: channel,
			MaxLen: b.maxLen,
			Approx: b.maxLen > 0,
			Values: map[string]interface{}{payloadField: payload},
		}).Err()
	})
}

// Subscribe joins the consumer group on channel, creating both if needed. Entries
// this consumer left pending in an earlier run are delivered before new ones.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan messaging.Message, error) {
	err := b.client.XGroupCreateMkStream(ctx, channel, b.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group on %s: %w", channel, err)
	}

	out := make(chan messaging.Message, readCount)
	go func() {
		defer close(out)

		// Walk our own pending entries from "0" first, then switch to ">" for new ones.
		cursor := "0"
		for ctx.Err() == nil {
			streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    b.group,
				Consumer: b.consumer,
				Streams:  []string{channel, cursor},
				Count:    readCount,
				Block:    readBlock,
			}).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Error(err, "Failed to read stream", "stream", channel, "group", b.group)
				select {
				case <-time.After(b.backoff):
				case <-ctx.Done():
					return
				}
				continue
			}

			last := ""
			for _, stream := range streams {
				for _, entry := range stream.Messages {
					last = entry.ID
					select {
					case out <- b.message(channel, entry):
					case <-ctx.Done():
						return
					}
				}
			}
			if cursor != ">" {
				if last == "" {
					cursor = ">"
				} else {
					cursor = last
				}
			}
		}
	}()

	return out, nil
}

func (b *RedisBroker) message(stream string, entry redis.XMessage) messaging.Message {
	var payload []byte
	switch v := entry.Values[payloadField].(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	}
	id := entry.ID
	return messaging.NewMessage(id, payload, func(ctx context.Context) error {
		return b.client.XAck(ctx, stream, b.group, id).Err()
	})
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
