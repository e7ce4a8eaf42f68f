package password

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/policy"
	"github.com/jwalitptl/password-policy/pkg/security"
)

const (
	CodePasswordTooWeak   = "PASSWORD_TOO_WEAK"
	CodePasswordUnchanged = "PASSWORD_UNCHANGED"
)

// Status summarises an account's password state for the account pages.
type Status struct {
	AccountType  string     `json:"account_type"`
	ChangedAt    *time.Time `json:"changed_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Expired      bool       `json:"expired"`
	HistoryCount int        `json:"history_count"`
	HistoryLimit int        `json:"history_limit"`
}

type Service struct {
	accounts  repository.AccountRepository
	hasher    security.PasswordHasher
	validator *policy.ReuseValidator
	expiry    *policy.ExpiryEvaluator
	registry  *policy.Registry
	rules     model.PasswordRules
	logger    *logger.Logger
}

func NewService(
	accounts repository.AccountRepository,
	hasher security.PasswordHasher,
	registry *policy.Registry,
	validator *policy.ReuseValidator,
	expiry *policy.ExpiryEvaluator,
	rules model.PasswordRules,
	log *logger.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		registry:  registry,
		validator: validator,
		expiry:    expiry,
		rules:     rules,
		logger:    log,
	}
}

// ChangePassword replaces the password of account. A rejected candidate is reported as a
// Violation with a nil error; the stored password is left untouched.
func (s *Service) ChangePassword(ctx context.Context, account model.Principal, current, next string) (*policy.Violation, error) {
	if !s.hasher.Verify(current, account.Password()) {
		return nil, errors.Unauthorized(model.ErrInvalidCredentials)
	}
	if s.hasher.Verify(next, account.Password()) {
		return &policy.Violation{
			Code:    CodePasswordUnchanged,
			Message: "The new password must differ from the current one",
		}, nil
	}
	if problems := s.rules.Check(next); len(problems) > 0 {
		return &policy.Violation{
			Code:    CodePasswordTooWeak,
			Message: "Password " + strings.Join(problems, ", "),
		}, nil
	}

	violation, err := s.validator.Validate(ctx, next, account)
	if err != nil {
		return nil, err
	}
	if violation != nil {
		return violation, nil
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	// the account stays as loaded unless the update commits
	before := policy.TakeSnapshot(account)
	oldHash := account.Password()
	account.SetPassword(hash)
	if err := s.accounts.UpdatePassword(ctx, account, oldHash); err != nil {
		before.Restore()
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", "account_type", account.AccountType(), "account_id", account.AccountID())
	return nil, nil
}

// Status reports when account's password was changed and when it expires.
func (s *Service) Status(ctx context.Context, account model.Principal) Status {
	st := Status{
		AccountType:  account.AccountType(),
		ChangedAt:    account.PasswordChangedAt(),
		HistoryCount: len(account.PasswordHistory()),
	}
	if cfg := s.registry.ResolveAccount(account); cfg != nil {
		st.HistoryLimit = cfg.HistoryLimit()
		st.ExpiresAt = s.expiry.ExpiresAt(account)
		st.Expired = s.expiry.IsExpired(ctx, account)
	}
	return st
}
