package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

// PasswordHistory is one archived password hash. Rows for every account type live in the
// same table, keyed by account_type and account_id.
type PasswordHistory struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AccountType string    `json:"account_type" db:"account_type"`
	AccountID   uuid.UUID `json:"account_id" db:"account_id"`
	Hash        string    `json:"-" db:"password_hash"`
	LegacySalt  *string   `json:"-" db:"salt"`
	Created     time.Time `json:"created_at" db:"created_at"`
}

// NewPasswordHistory is the policy.HistoryFactory for every account type.
func NewPasswordHistory() policy.HistoryEntry {
	return &PasswordHistory{ID: uuid.New()}
}

func (h *PasswordHistory) PasswordHash() string { return h.Hash }

func (h *PasswordHistory) SetPasswordHash(hash string) { h.Hash = hash }

func (h *PasswordHistory) Salt() string {
	if h.LegacySalt == nil {
		return ""
	}
	return *h.LegacySalt
}

func (h *PasswordHistory) CreatedAt() time.Time { return h.Created }

func (h *PasswordHistory) SetCreatedAt(t time.Time) { h.Created = t }

func (h *PasswordHistory) SetAccount(a policy.Account) {
	h.AccountType = a.AccountType()
	if id, err := uuid.Parse(a.AccountID()); err == nil {
		h.AccountID = id
	}
}
