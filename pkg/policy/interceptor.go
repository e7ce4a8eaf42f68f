package policy

import (
	"context"
	"time"

	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

// Archived pairs a history entry with the account it belongs to.
type Archived struct {
	Account Account
	Entry   HistoryEntry
}

// Batch is the state of one persistence flush. Create one per flush with NewBatch; the
// persistence layer writes Created and deletes Evicted inside the transaction that stores
// the password change itself, then calls Commit once the transaction committed or
// Rollback when it did not.
type Batch struct {
	seen      map[string]struct{}
	created   []Archived
	evicted   []Archived
	snapshots map[string]*Snapshot
	order     []string
	pending   []pendingEvent
	onCommit  []func()
	done      bool
}

type pendingEvent struct {
	events event.Dispatcher
	event  event.Event
}

func NewBatch() *Batch {
	return &Batch{seen: make(map[string]struct{}), snapshots: make(map[string]*Snapshot)}
}

func (b *Batch) Created() []Archived { return b.created }

func (b *Batch) Evicted() []Archived { return b.evicted }

// Empty reports whether the batch holds nothing to persist.
func (b *Batch) Empty() bool { return len(b.created) == 0 && len(b.evicted) == 0 }

// Events lists the events held back until Commit.
func (b *Batch) Events() []event.Event {
	out := make([]event.Event, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.event)
	}
	return out
}

// Commit dispatches the held events. Call it after the transaction committed. Only the
// first Commit or Rollback on a batch has any effect.
func (b *Batch) Commit(ctx context.Context) {
	if b == nil || b.done {
		return
	}
	b.done = true
	for _, fn := range b.onCommit {
		fn()
	}
	for _, p := range b.pending {
		p.events.Dispatch(ctx, p.event)
	}
	b.pending = nil
}

// Rollback drops the held events and puts every touched account back the way it was
// before the flush.
func (b *Batch) Rollback() {
	if b == nil || b.done {
		return
	}
	b.done = true
	b.pending = nil
	for i := len(b.order) - 1; i >= 0; i-- {
		b.snapshots[b.order[i]].Restore()
	}
}

func (b *Batch) hold(events event.Dispatcher, e event.Event) {
	b.pending = append(b.pending, pendingEvent{events: events, event: e})
}

func (b *Batch) snapshot(a Account) {
	key := accountKey(a)
	if _, ok := b.snapshots[key]; ok {
		return
	}
	b.snapshots[key] = TakeSnapshot(a)
	b.order = append(b.order, key)
}

func (b *Batch) markSeen(a Account, hash string) bool {
	key := accountKey(a) + "\x00" + hash
	if _, ok := b.seen[key]; ok {
		return false
	}
	b.seen[key] = struct{}{}
	return true
}

func accountKey(a Account) string {
	return a.AccountType() + "\x00" + a.AccountID()
}

// Snapshot is the password state of an account at one point in time.
type Snapshot struct {
	account   Account
	password  string
	changedAt *time.Time
	history   []HistoryEntry
}

// TakeSnapshot copies a's password, change timestamp and history.
func TakeSnapshot(a Account) *Snapshot {
	s := &Snapshot{
		account:  a,
		password: a.Password(),
		history:  append([]HistoryEntry(nil), a.PasswordHistory()...),
	}
	if t := a.PasswordChangedAt(); t != nil {
		at := *t
		s.changedAt = &at
	}
	return s
}

// Restore writes the snapshot back. A nil timestamp is only restored on accounts that
// implement ChangedAtClearer.
func (s *Snapshot) Restore() {
	a := s.account
	a.SetPassword(s.password)
	for _, e := range a.PasswordHistory() {
		a.RemovePasswordHistory(e)
	}
	for _, e := range s.history {
		a.AddPasswordHistory(e)
	}
	switch {
	case s.changedAt != nil:
		a.SetPasswordChangedAt(*s.changedAt)
	default:
		if c, ok := a.(ChangedAtClearer); ok {
			c.ClearPasswordChangedAt()
		}
	}
}

type InterceptorConfig struct {
	// Expiry is used to invalidate cached expiry results. Optional.
	Expiry  *ExpiryEvaluator
	Events  event.Dispatcher
	Now     func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Interceptor archives the previous password hash whenever an account's password changes.
type Interceptor struct {
	registry *Registry
	expiry   *ExpiryEvaluator
	events   event.Dispatcher
	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewInterceptor(reg *Registry, cfg InterceptorConfig) *Interceptor {
	if cfg.Events == nil {
		cfg.Events = event.Nop
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Interceptor{
		registry: reg,
		expiry:   cfg.Expiry,
		events:   cfg.Events,
		now:      cfg.Now,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// OnPasswordChanged archives oldHash (or the account's current hash when oldHash is
// empty) into the account's history and applies retention.
//
// PasswordHistoryCreated and PasswordChanged are held in batch and only dispatched by
// Batch.Commit.
//
// It returns nil without error when there is nothing to archive: the account type is not
// configured, no hash is available, or the same hash was already archived for this
// account in batch. A history factory that produces nothing is a runtime contract error.
func (i *Interceptor) OnPasswordChanged(ctx context.Context, batch *Batch, a Account, oldHash string) (HistoryEntry, error) {
	if batch == nil {
		return nil, errors.RuntimeContract("password history: nil batch")
	}
	cfg := i.registry.ResolveAccount(a)
	if cfg == nil {
		return nil, nil
	}

	if oldHash == "" {
		oldHash = a.Password()
	}
	// "0" is the empty value some hosts store for unset credentials
	if oldHash == "" || oldHash == "0" {
		return nil, nil
	}
	if !batch.markSeen(a, oldHash) {
		return nil, nil
	}
	batch.snapshot(a)

	entry := cfg.HistoryFactory()()
	if entry == nil {
		return nil, errors.RuntimeContract(
			"password history factory for entity %s (field %s) returned no entry", cfg.AccountType(), cfg.HistoryField())
	}

	now := i.now()
	entry.SetAccount(a)
	entry.SetPasswordHash(oldHash)
	entry.SetCreatedAt(now)
	a.AddPasswordHistory(entry)

	stale := SelectStaleEntries(a.PasswordHistory(), cfg.HistoryLimit())
	created := true
	evicted := 0
	for _, s := range stale {
		a.RemovePasswordHistory(s)
		if s == entry {
			// limit 0: the entry never reaches storage
			created = false
			continue
		}
		batch.evicted = append(batch.evicted, Archived{Account: a, Entry: s})
		evicted++
	}
	if created {
		batch.created = append(batch.created, Archived{Account: a, Entry: entry})
	}

	previous := a.PasswordChangedAt()
	a.SetPasswordChangedAt(now)
	if i.expiry != nil {
		i.expiry.Invalidate(ctx, a, previous)
	}

	createdCount := 0
	if created {
		createdCount = 1
		batch.hold(i.events, PasswordHistoryCreated{Account: a, Entry: entry, EvictedCount: evicted})
	}
	batch.hold(i.events, PasswordChanged{Account: a, ChangedAt: now})
	accountType := a.AccountType()
	batch.onCommit = append(batch.onCommit, func() {
		i.metrics.ObserveHistory(accountType, createdCount, evicted)
	})

	logAt(i.logger, cfg, "Password history entry created",
		"account_type", a.AccountType(),
		"account_id", a.AccountID(),
		"evicted", evicted,
		"history_limit", cfg.HistoryLimit())

	return entry, nil
}

// logAt logs at the config's level when logging is enabled for it.
func logAt(l *logger.Logger, cfg *Config, msg string, fields ...interface{}) {
	if l == nil || cfg == nil || !cfg.LoggingEnabled() {
		return
	}
	l.Log(cfg.LogLevel(), msg, append(fields, "component", "password_policy")...)
}
