package policy

import (
	"context"
	"time"
)

// Account is the capability set a host entity must provide to be subject to password policy.
type Account interface {
	// AccountType names the kind of account; it selects the Config.
	AccountType() string
	AccountID() string

	Password() string
	SetPassword(hash string)

	// PasswordChangedAt is nil when the password change was never tracked.
	PasswordChangedAt() *time.Time
	SetPasswordChangedAt(t time.Time)

	PasswordHistory() []HistoryEntry
	AddPasswordHistory(e HistoryEntry)
	RemovePasswordHistory(e HistoryEntry)
}

// ChangedAtClearer is implemented by accounts whose change timestamp can be reset to
// unset. Batch.Rollback uses it to restore a timestamp that was nil before the flush.
type ChangedAtClearer interface {
	ClearPasswordChangedAt()
}

// HistoryEntry is one archived password hash. Entries are immutable once archived.
type HistoryEntry interface {
	PasswordHash() string
	SetPasswordHash(hash string)
	// Salt is only set for legacy hashes that keep the salt outside the hash string.
	Salt() string
	CreatedAt() time.Time
	SetCreatedAt(t time.Time)
	// SetAccount sets the back-reference to the owning account.
	SetAccount(a Account)
}

// HistoryFactory returns a new, empty entry of the host's history type.
type HistoryFactory func() HistoryEntry

// Verifier checks a plaintext against a stored hash in constant time.
type Verifier interface {
	Verify(password, hash string) bool
}

// SaltedVerifier is implemented by verifiers that understand legacy external salts.
type SaltedVerifier interface {
	VerifySalted(password, hash, salt string) bool
}

// PrincipalResolver returns the account making the current request, or nil.
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context) Account
}

// PrincipalResolverFunc adapts a function to PrincipalResolver.
type PrincipalResolverFunc func(ctx context.Context) Account

func (f PrincipalResolverFunc) CurrentPrincipal(ctx context.Context) Account {
	return f(ctx)
}

// URLGenerator resolves a route name. Unknown names return an error for which
// errors.IsRouteNotFound is true.
type URLGenerator interface {
	URL(name string, params map[string]string) (string, error)
}

// Notifier surfaces a user-facing notice (flash, toast, banner).
type Notifier interface {
	Notify(ctx context.Context, channel string, msg Message) error
}

// Translator localizes a message key.
type Translator interface {
	Translate(key, locale string) string
}

// Message is a notice with an optional title.
type Message struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"message"`
}

type localeKey struct{}

// WithLocale stores the request locale used for translations.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFrom returns the locale set by WithLocale, or "".
func LocaleFrom(ctx context.Context) string {
	l, _ := ctx.Value(localeKey{}).(string)
	return l
}
