package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/errors"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := mustConfig(t, "user", "password_reset")

	assert.Equal(t, DefaultExpiryDays, cfg.ExpiryDays())
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit())
	assert.Equal(t, "password", cfg.PasswordField())
	assert.Equal(t, "passwordHistory", cfg.HistoryField())
	assert.Equal(t, "error", cfg.ErrorMessageType())
	assert.Equal(t, DefaultExtensionMinLength, cfg.ExtensionMinLength())
	assert.False(t, cfg.RedirectOnExpiry())
	assert.False(t, cfg.DetectExtensions())
	assert.Equal(t, Message{Title: DefaultErrorTitleKey, Text: DefaultErrorMessageKey}, cfg.ErrorMessage())
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		accountType string
		resetRoute  string
		factory     HistoryFactory
		opts        []Option
	}{
		{name: "missing account type", resetRoute: "reset", factory: newTestEntry},
		{name: "missing reset route", accountType: "user", factory: newTestEntry},
		{name: "missing factory", accountType: "user", resetRoute: "reset"},
		{name: "negative expiry", accountType: "user", resetRoute: "reset", factory: newTestEntry, opts: []Option{WithExpiryDays(-1)}},
		{name: "negative limit", accountType: "user", resetRoute: "reset", factory: newTestEntry, opts: []Option{WithHistoryLimit(-1)}},
		{name: "empty locked route", accountType: "user", resetRoute: "reset", factory: newTestEntry, opts: []Option{WithLockedRoutes("home", "")}},
		{name: "empty excluded route", accountType: "user", resetRoute: "reset", factory: newTestEntry, opts: []Option{WithExcludedRoutes("")}},
		{name: "empty password field", accountType: "user", resetRoute: "reset", factory: newTestEntry, opts: []Option{WithPasswordField("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.accountType, tt.resetRoute, tt.factory, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestRegistryRejectsDuplicateResetRoute(t *testing.T) {
	users := mustConfig(t, "user", "password_reset")
	clinicians := mustConfig(t, "clinician", "password_reset")

	_, err := NewRegistry(nil, users, clinicians)

	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "password_reset")
}

func TestRegistryRejectsDuplicateAccountType(t *testing.T) {
	_, err := NewRegistry(nil, mustConfig(t, "user", "a"), mustConfig(t, "user", "b"))

	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestRegistrySharedLockedRoutes(t *testing.T) {
	tests := []struct {
		name      string
		userExcl  []string
		clinExcl  []string
		wantError bool
	}{
		{name: "excluded in both", userExcl: []string{"dashboard"}, clinExcl: []string{"dashboard"}},
		{name: "excluded in one", userExcl: []string{"dashboard"}, wantError: true},
		{name: "excluded in neither", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := mustConfig(t, "user", "user_reset",
				WithLockedRoutes("dashboard", "profile"), WithExcludedRoutes(tt.userExcl...))
			clinicians := mustConfig(t, "clinician", "clinician_reset",
				WithLockedRoutes("dashboard"), WithExcludedRoutes(tt.clinExcl...))

			reg, err := NewRegistry(nil, users, clinicians)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, errors.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, reg.Configs(), 2)
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	users := mustConfig(t, "user", "user_reset")
	clinicians := mustConfig(t, "clinician", "clinician_reset")
	principal := &testAccount{kind: "clinician", id: "7"}
	reg := mustRegistry(t, principal, users, clinicians)

	assert.Same(t, users, reg.Resolve("user"))
	assert.Nil(t, reg.Resolve("admin"))
	assert.Nil(t, reg.Resolve(""))
	assert.Nil(t, reg.ResolveAccount(nil))
	assert.Same(t, clinicians, reg.ResolveForCurrentPrincipal(context.Background()))
	assert.Equal(t, []*Config{users, clinicians}, reg.Configs())
}

func TestRegistryWithoutPrincipalResolver(t *testing.T) {
	reg, err := NewRegistry(nil, mustConfig(t, "user", "reset"))
	require.NoError(t, err)

	assert.Nil(t, reg.CurrentPrincipal(context.Background()))
	assert.Nil(t, reg.ResolveForCurrentPrincipal(context.Background()))
}
