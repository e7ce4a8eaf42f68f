package policy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/event"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type testEntry struct {
	hash      string
	salt      string
	createdAt time.Time
	account   Account
}

func (e *testEntry) PasswordHash() string { return e.hash }
func (e *testEntry) SetPasswordHash(h string) { e.hash = h }
func (e *testEntry) Salt() string { return e.salt }
func (e *testEntry) CreatedAt() time.Time { return e.createdAt }
func (e *testEntry) SetCreatedAt(t time.Time) { e.createdAt = t }
func (e *testEntry) SetAccount(a Account) { e.account = a }

func newTestEntry() HistoryEntry { return &testEntry{} }

type testAccount struct {
	kind      string
	id        string
	password  string
	changedAt *time.Time
	history   []HistoryEntry
}

func (a *testAccount) AccountType() string { return a.kind }
func (a *testAccount) AccountID() string { return a.id }
func (a *testAccount) Password() string { return a.password }
func (a *testAccount) SetPassword(h string) { a.password = h }
func (a *testAccount) PasswordChangedAt() *time.Time { return a.changedAt }
func (a *testAccount) SetPasswordChangedAt(t time.Time) { a.changedAt = &t }
func (a *testAccount) PasswordHistory() []HistoryEntry { return a.history }
func (a *testAccount) AddPasswordHistory(e HistoryEntry) {
	a.history = append(a.history, e)
}
func (a *testAccount) RemovePasswordHistory(e HistoryEntry) {
	for i, h := range a.history {
		if h == e {
			a.history = append(a.history[:i], a.history[i+1:]...)
			return
		}
	}
}

type clearableAccount struct{ testAccount }

func (a *clearableAccount) ClearPasswordChangedAt() { a.changedAt = nil }

func userAccount(changedAt *time.Time) *testAccount {
	return &testAccount{kind: "user", id: "42", password: "$hash$current", changedAt: changedAt}
}

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func fixedClock() time.Time { return testNow }

// plainVerifier treats "plain:<password>" as the hash of <password>.
type plainVerifier struct{ calls int }

func (v *plainVerifier) Verify(password, hash string) bool {
	v.calls++
	return hash == "plain:"+password
}

func (v *plainVerifier) VerifySalted(password, hash, salt string) bool {
	v.calls++
	return hash == "plain:"+salt+password
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []event.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) types() []event.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.EventType())
	}
	return out
}

func mustConfig(t *testing.T, accountType, resetRoute string, opts ...Option) *Config {
	t.Helper()
	cfg, err := NewConfig(accountType, resetRoute, newTestEntry, opts...)
	require.NoError(t, err)
	return cfg
}

func mustRegistry(t *testing.T, principal Account, configs ...*Config) *Registry {
	t.Helper()
	reg, err := NewRegistry(PrincipalResolverFunc(func(context.Context) Account {
		if principal == nil {
			return nil
		}
		return principal
	}), configs...)
	require.NoError(t, err)
	return reg
}
