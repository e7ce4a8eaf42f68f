// Package flash stores one-shot notices per account in a cache.Store until the account's
// next page view pops them.
package flash

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

const DefaultTTL = time.Hour

// ErrNoPrincipal is returned when a notice is raised outside an authenticated request.
var ErrNoPrincipal = fmt.Errorf("flash: no current principal")

// Messages groups notices by channel ("error", "warning", ...).
type Messages map[string][]policy.Message

// Bag implements policy.Notifier.
type Bag struct {
	mu         sync.Mutex
	store      cache.Store
	principals policy.PrincipalResolver
	ttl        time.Duration
}

func NewBag(store cache.Store, principals policy.PrincipalResolver, ttl time.Duration) *Bag {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Bag{store: store, principals: principals, ttl: ttl}
}

// Notify appends msg to the current principal's channel. Repeated identical notices on one
// channel are stored once.
func (b *Bag) Notify(ctx context.Context, channel string, msg policy.Message) error {
	a := b.principals.CurrentPrincipal(ctx)
	if a == nil {
		return ErrNoPrincipal
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msgs, err := b.load(ctx, a)
	if err != nil {
		return err
	}
	for _, m := range msgs[channel] {
		if m == msg {
			return nil
		}
	}
	msgs[channel] = append(msgs[channel], msg)

	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("flash: failed to encode messages: %w", err)
	}
	return b.store.Set(ctx, key(a), data, b.ttl)
}

// Pop returns and clears the account's notices.
func (b *Bag) Pop(ctx context.Context, a policy.Account) (Messages, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs, err := b.load(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := b.store.Delete(ctx, key(a)); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (b *Bag) load(ctx context.Context, a policy.Account) (Messages, error) {
	msgs := make(Messages)
	data, ok, err := b.store.Get(ctx, key(a))
	if err != nil {
		return nil, err
	}
	if !ok {
		return msgs, nil
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("flash: failed to decode messages: %w", err)
	}
	return msgs, nil
}

func key(a policy.Account) string {
	return "flash:" + a.AccountType() + ":" + a.AccountID()
}
