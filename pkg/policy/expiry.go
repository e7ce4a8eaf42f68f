package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

const DefaultExpiryCacheTTL = 3600 * time.Second

var (
	expiredValue = []byte{1}
	validValue   = []byte{0}
)

type ExpiryConfig struct {
	// Cache is optional. Results are keyed by the password change timestamp, so a stale
	// entry can only be read for an old timestamp.
	Cache    cache.Store
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// ExpiryEvaluator decides whether an account's password has outlived its expiry window.
type ExpiryEvaluator struct {
	registry *Registry
	cache    cache.Store
	ttl      time.Duration
	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewExpiryEvaluator(reg *Registry, cfg ExpiryConfig) *ExpiryEvaluator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultExpiryCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ExpiryEvaluator{
		registry: reg,
		cache:    cfg.Cache,
		ttl:      cfg.CacheTTL,
		now:      cfg.Now,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// ExpiresAt returns when the account's password expires, or nil when it never does: the
// account type is not configured, or the change timestamp was never recorded.
func (e *ExpiryEvaluator) ExpiresAt(a Account) *time.Time {
	cfg := e.registry.ResolveAccount(a)
	if cfg == nil {
		return nil
	}
	changedAt := a.PasswordChangedAt()
	if changedAt == nil {
		return nil
	}
	t := changedAt.AddDate(0, 0, cfg.ExpiryDays())
	return &t
}

// IsExpired reports whether the password expired. A nil or future change timestamp is
// never expired. Cache failures fall back to computing the answer directly.
func (e *ExpiryEvaluator) IsExpired(ctx context.Context, a Account) bool {
	cfg := e.registry.ResolveAccount(a)
	if cfg == nil {
		return false
	}
	changedAt := a.PasswordChangedAt()
	if changedAt == nil {
		return false
	}
	now := e.now()
	if changedAt.After(now) {
		return false
	}

	key := expiryCacheKey(a, *changedAt)
	if v, ok := e.lookup(ctx, key); ok {
		return v
	}

	expiresAt := changedAt.AddDate(0, 0, cfg.ExpiryDays())
	expired := !expiresAt.After(now)
	e.metrics.ObserveExpiry(a.AccountType(), expired)

	if e.cache != nil {
		val := validValue
		if expired {
			val = expiredValue
		}
		// an unexpired result must not outlive the expiry moment
		ttl := e.ttl
		if !expired && expiresAt.Sub(now) < ttl {
			ttl = expiresAt.Sub(now)
		}
		if err := e.cache.Set(ctx, key, val, ttl); err != nil {
			e.logger.Warn("Password expiry cache write failed", "key", key, "error", err.Error())
		}
	}
	return expired
}

// Invalidate drops the cached result computed for changedAt. A nil changedAt is a no-op.
func (e *ExpiryEvaluator) Invalidate(ctx context.Context, a Account, changedAt *time.Time) {
	if e.cache == nil || a == nil || changedAt == nil {
		return
	}
	key := expiryCacheKey(a, *changedAt)
	if err := e.cache.Delete(ctx, key); err != nil {
		e.logger.Warn("Password expiry cache invalidation failed", "key", key, "error", err.Error())
	}
}

func (e *ExpiryEvaluator) lookup(ctx context.Context, key string) (bool, bool) {
	if e.cache == nil {
		return false, false
	}
	v, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		e.metrics.ObserveCache("error")
		e.logger.Warn("Password expiry cache read failed", "key", key, "error", err.Error())
		return false, false
	case !ok || len(v) != 1:
		e.metrics.ObserveCache("miss")
		return false, false
	}
	e.metrics.ObserveCache("hit")
	return v[0] == 1, true
}

func expiryCacheKey(a Account, changedAt time.Time) string {
	return fmt.Sprintf("password_expiry:%x:%s:%d", xxhash.Sum64String(a.AccountType()), a.AccountID(), changedAt.Unix())
}
