package model

import (
	"time"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

// Account types known to the host.
const (
	AccountTypeUser      = "user"
	AccountTypeClinician = "clinician"
)

// PasswordState carries the password columns and history shared by every account type.
// Embedding it gives an entity everything policy.Account needs except AccountType and
// AccountID.
type PasswordState struct {
	PasswordHash      string     `json:"-" db:"password_hash"`
	PasswordUpdatedAt *time.Time `json:"password_changed_at,omitempty" db:"password_changed_at"`

	history []policy.HistoryEntry
}

func (s *PasswordState) Password() string { return s.PasswordHash }

func (s *PasswordState) SetPassword(hash string) { s.PasswordHash = hash }

func (s *PasswordState) PasswordChangedAt() *time.Time { return s.PasswordUpdatedAt }

func (s *PasswordState) SetPasswordChangedAt(t time.Time) { s.PasswordUpdatedAt = &t }

func (s *PasswordState) ClearPasswordChangedAt() { s.PasswordUpdatedAt = nil }

func (s *PasswordState) PasswordHistory() []policy.HistoryEntry {
	out := make([]policy.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *PasswordState) AddPasswordHistory(e policy.HistoryEntry) {
	s.history = append(s.history, e)
}

func (s *PasswordState) RemovePasswordHistory(e policy.HistoryEntry) {
	for i, h := range s.history {
		if h == e {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}

// LoadPasswordHistory replaces the in-memory history with rows read from storage.
func (s *PasswordState) LoadPasswordHistory(rows []*PasswordHistory) {
	s.history = make([]policy.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		s.history = append(s.history, r)
	}
}

// Principal is an account that can sign in.
type Principal interface {
	policy.Account
	EmailAddress() string
	DisplayName() string
	Locale() string
}
