package policy

import (
	"time"

	"github.com/jwalitptl/password-policy/pkg/event"
)

const (
	EventPasswordChanged        event.EventType = "password_changed"
	EventPasswordHistoryCreated event.EventType = "password_history_created"
	EventPasswordExpired        event.EventType = "password_expired"
	EventPasswordReuseAttempted event.EventType = "password_reuse_attempted"
)

// PasswordChanged fires after the interceptor archived the previous password.
type PasswordChanged struct {
	Account   Account
	ChangedAt time.Time
}

func (PasswordChanged) EventType() event.EventType { return EventPasswordChanged }

func (e PasswordChanged) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_type": e.Account.AccountType(),
		"account_id":   e.Account.AccountID(),
		"changed_at":   e.ChangedAt.UTC(),
	}
}

// PasswordHistoryCreated fires for every archived entry.
type PasswordHistoryCreated struct {
	Account      Account
	Entry        HistoryEntry
	EvictedCount int
}

func (PasswordHistoryCreated) EventType() event.EventType { return EventPasswordHistoryCreated }

func (e PasswordHistoryCreated) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_type":  e.Account.AccountType(),
		"account_id":    e.Account.AccountID(),
		"created_at":    e.Entry.CreatedAt().UTC(),
		"evicted_count": e.EvictedCount,
	}
}

// PasswordExpired fires when the gate warns about an expired password.
type PasswordExpired struct {
	Account      Account
	Route        string
	WillRedirect bool
}

func (PasswordExpired) EventType() event.EventType { return EventPasswordExpired }

func (e PasswordExpired) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_type":  e.Account.AccountType(),
		"account_id":    e.Account.AccountID(),
		"route":         e.Route,
		"will_redirect": e.WillRedirect,
	}
}

// PasswordReuseAttempted fires when a candidate password matches the history.
type PasswordReuseAttempted struct {
	Account   Account
	Entry     HistoryEntry
	Extension bool
}

func (PasswordReuseAttempted) EventType() event.EventType { return EventPasswordReuseAttempted }

func (e PasswordReuseAttempted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"account_type":     e.Account.AccountType(),
		"account_id":       e.Account.AccountID(),
		"entry_created_at": e.Entry.CreatedAt().UTC(),
		"extension":        e.Extension,
	}
}
