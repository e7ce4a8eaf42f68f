package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

func TestUserImplementsAccount(t *testing.T) {
	var _ policy.Account = (*User)(nil)
	var _ Principal = (*Clinician)(nil)

	u := NewUser("ada@example.com", "Ada", "$2a$hash")
	assert.Equal(t, AccountTypeUser, u.AccountType())
	assert.Equal(t, u.ID.String(), u.AccountID())
	assert.Equal(t, "$2a$hash", u.Password())
	assert.Nil(t, u.PasswordChangedAt())

	now := time.Now()
	u.SetPasswordChangedAt(now)
	require.NotNil(t, u.PasswordChangedAt())
	assert.Equal(t, now, *u.PasswordChangedAt())
}

func TestPasswordStateHistory(t *testing.T) {
	c := NewClinician("grey@example.com", "Grey", "LIC-1", "$hash")
	first := NewPasswordHistory()
	first.SetAccount(c)
	second := NewPasswordHistory()

	c.AddPasswordHistory(first)
	c.AddPasswordHistory(second)
	c.RemovePasswordHistory(first)

	assert.Equal(t, []policy.HistoryEntry{second}, c.PasswordHistory())
	assert.Equal(t, AccountTypeClinician, first.(*PasswordHistory).AccountType)
	assert.Equal(t, c.ID, first.(*PasswordHistory).AccountID)

	c.LoadPasswordHistory([]*PasswordHistory{{Hash: "a"}, {Hash: "b"}})
	assert.Len(t, c.PasswordHistory(), 2)
}

func TestPasswordHistorySalt(t *testing.T) {
	h := &PasswordHistory{}
	assert.Empty(t, h.Salt())
	salt := "pepper"
	h.LegacySalt = &salt
	assert.Equal(t, "pepper", h.Salt())
}

func TestPasswordRulesCheck(t *testing.T) {
	rules := PasswordRules{
		MinLength:           10,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
		BlockedPasswords:    []string{"Password123!"},
	}

	assert.Empty(t, rules.Check("Correct-Horse-9"))
	assert.Len(t, rules.Check("short"), 4)
	assert.Equal(t, []string{"is too common"}, rules.Check("Password123!"))
}
