package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// ExpiryMailInterval is the minimum time between two expiry mails to one account.
const ExpiryMailInterval = 24 * time.Hour

// AccountLookup loads the account an event refers to.
type AccountLookup interface {
	Get(ctx context.Context, accountType string, id uuid.UUID) (model.Principal, error)
}

// Mailer sends the notifications the relay triggers.
type Mailer interface {
	SendPasswordChanged(ctx context.Context, email, name string, changedAt time.Time) error
	SendPasswordExpired(ctx context.Context, email, name string) error
}

type relayMetrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// EventRelay consumes policy events from the broker and mails the account owner.
type EventRelay struct {
	broker   messaging.MessageBroker
	topic    string
	accounts AccountLookup
	mailer   Mailer
	sent     cache.Store
	logger   *logger.Logger
	metrics  *relayMetrics
	now      func() time.Time
}

// NewEventRelay builds a relay. sent remembers recent expiry mails; reg may be nil.
func NewEventRelay(broker messaging.MessageBroker, topic string, accounts AccountLookup, mailer Mailer, sent cache.Store, log *logger.Logger, reg prometheus.Registerer) *EventRelay {
	if topic == "" {
		topic = event.DefaultTopic
	}
	m := &relayMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "password_policy_relay_events_processed_total",
			Help: "Policy events handled by the relay",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "password_policy_relay_events_failed_total",
			Help: "Policy events the relay failed to handle",
		}, []string{"event_type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "password_policy_relay_latency_seconds",
			Help:    "Time between an event occurring and the relay handling it",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.failed, m.latency)
	}
	return &EventRelay{
		broker:   broker,
		topic:    topic,
		accounts: accounts,
		mailer:   mailer,
		sent:     sent,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// Start subscribes to the events topic. Messages are handled until ctx is done.
func (r *EventRelay) Start(ctx context.Context) error {
	r.logger.Info("Event relay started", "topic", r.topic)
	return r.broker.Subscribe(ctx, r.topic, func(data []byte) error {
		return r.Handle(ctx, data)
	})
}

// Handle processes one relayed envelope. Events the relay has no use for are ignored.
func (r *EventRelay) Handle(ctx context.Context, data []byte) error {
	env, err := event.DecodeEnvelope(data)
	if err != nil {
		r.metrics.failed.WithLabelValues("unknown").Inc()
		return err
	}
	eventType := string(env.EventType)

	switch env.EventType {
	case policy.EventPasswordChanged:
		err = r.passwordChanged(ctx, env)
	case policy.EventPasswordExpired:
		err = r.passwordExpired(ctx, env)
	default:
		return nil
	}
	if err != nil {
		r.metrics.failed.WithLabelValues(eventType).Inc()
		return fmt.Errorf("failed to handle %s event %s: %w", eventType, env.ID, err)
	}
	r.metrics.processed.WithLabelValues(eventType).Inc()
	r.metrics.latency.WithLabelValues(eventType).Observe(r.now().Sub(env.OccurredAt).Seconds())
	return nil
}

func (r *EventRelay) passwordChanged(ctx context.Context, env event.Envelope) error {
	account, err := r.account(ctx, env)
	if err != nil {
		return err
	}
	changedAt := env.OccurredAt
	if s, ok := env.Payload["changed_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			changedAt = t
		}
	}
	return r.mailer.SendPasswordChanged(ctx, account.EmailAddress(), account.DisplayName(), changedAt)
}

// passwordExpired mails at most once per ExpiryMailInterval per account; the gate raises
// the event on every locked request.
func (r *EventRelay) passwordExpired(ctx context.Context, env event.Envelope) error {
	account, err := r.account(ctx, env)
	if err != nil {
		return err
	}
	key := "expiry_mail:" + account.AccountType() + ":" + account.AccountID()
	if _, ok, err := r.sent.Get(ctx, key); err == nil && ok {
		return nil
	}
	if err := r.mailer.SendPasswordExpired(ctx, account.EmailAddress(), account.DisplayName()); err != nil {
		return err
	}
	if err := r.sent.Set(ctx, key, []byte{1}, ExpiryMailInterval); err != nil {
		r.logger.Warn("Could not record expiry mail", "account_id", account.AccountID(), "error", err.Error())
	}
	return nil
}

func (r *EventRelay) account(ctx context.Context, env event.Envelope) (model.Principal, error) {
	accountType, _ := env.Payload["account_type"].(string)
	rawID, _ := env.Payload["account_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", rawID, err)
	}
	return r.accounts.Get(ctx, accountType, id)
}
