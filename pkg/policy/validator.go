package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

const (
	CodePasswordInHistory          = "PASSWORD_IN_HISTORY"
	CodePasswordExtensionInHistory = "PASSWORD_EXTENSION_IN_HISTORY"

	ReuseMessage = "Cannot change your password to an old one. You used this password {{ days }}"
)

// Violation describes a rejected candidate password.
type Violation struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	DaysAgo int          `json:"days_ago"`
	Entry   HistoryEntry `json:"-"`
}

func (v *Violation) Error() string { return v.Message }

type ReuseValidatorConfig struct {
	Events     event.Dispatcher
	Translator Translator
	Now        func() time.Time
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// ReuseValidator rejects passwords found in the account's history.
type ReuseValidator struct {
	registry   *Registry
	detector   *ReuseDetector
	events     event.Dispatcher
	translator Translator
	now        func() time.Time
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewReuseValidator(reg *Registry, detector *ReuseDetector, cfg ReuseValidatorConfig) *ReuseValidator {
	if cfg.Events == nil {
		cfg.Events = event.Nop
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReuseValidator{
		registry:   reg,
		detector:   detector,
		events:     cfg.Events,
		translator: cfg.Translator,
		now:        cfg.Now,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Validate checks plain against the history of subject, which must be an Account. It
// returns a Violation when the password was used before, and a validation error when
// subject is not an Account.
func (v *ReuseValidator) Validate(ctx context.Context, plain string, subject interface{}) (*Violation, error) {
	if plain == "" {
		return nil, nil
	}
	a, ok := subject.(Account)
	if !ok || a == nil {
		return nil, errors.Validation("expected validation subject to implement policy.Account, got %T", subject)
	}

	if e := v.detector.FindMatch(plain, a); e != nil {
		return v.reject(ctx, a, e, CodePasswordInHistory, false), nil
	}

	cfg := v.registry.ResolveAccount(a)
	if cfg != nil && cfg.DetectExtensions() {
		if e := v.detector.FindExtensionMatch(plain, a, cfg.ExtensionMinLength()); e != nil {
			return v.reject(ctx, a, e, CodePasswordExtensionInHistory, true), nil
		}
	}
	return nil, nil
}

func (v *ReuseValidator) reject(ctx context.Context, a Account, e HistoryEntry, code string, extension bool) *Violation {
	days := daysBetween(e.CreatedAt(), v.now())

	v.events.Dispatch(ctx, PasswordReuseAttempted{Account: a, Entry: e, Extension: extension})
	kind := "exact"
	if extension {
		kind = "extension"
	}
	v.metrics.ObserveReuse(a.AccountType(), kind)
	logAt(v.logger, v.registry.ResolveAccount(a), "Password reuse attempt detected",
		"user_id", a.AccountID(),
		"account_type", a.AccountType(),
		"password_used_days_ago", days,
		"extension", extension)

	msg := ReuseMessage
	if v.translator != nil {
		msg = v.translator.Translate(ReuseMessage, LocaleFrom(ctx))
	}
	return &Violation{
		Code:    code,
		Message: strings.ReplaceAll(msg, "{{ days }}", HumanizeDaysAgo(days)),
		DaysAgo: days,
		Entry:   e,
	}
}

// HumanizeDaysAgo renders a day count for the reuse message.
func HumanizeDaysAgo(days int) string {
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func daysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
