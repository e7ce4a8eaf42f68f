package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/event"
)

type mapTranslator map[string]map[string]string

func (m mapTranslator) Translate(key, locale string) string {
	if msg, ok := m[locale][key]; ok {
		return msg
	}
	return key
}

func newTestValidator(t *testing.T, events event.Dispatcher, tr Translator, opts ...Option) *ReuseValidator {
	t.Helper()
	reg := mustRegistry(t, nil, mustConfig(t, "user", "reset", opts...))
	return NewReuseValidator(reg, NewReuseDetector(&plainVerifier{}, nil), ReuseValidatorConfig{
		Events:     events,
		Translator: tr,
		Now:        fixedClock,
	})
}

func TestValidateExactReuse(t *testing.T) {
	events := &recordingDispatcher{}
	v := newTestValidator(t, events, nil)
	a := userAccount(nil)
	a.history = []HistoryEntry{&testEntry{hash: "plain:Summer2023", createdAt: testNow.Add(-days(12))}}

	violation, err := v.Validate(context.Background(), "Summer2023", a)

	require.NoError(t, err)
	require.NotNil(t, violation)
	assert.Equal(t, CodePasswordInHistory, violation.Code)
	assert.Equal(t, 12, violation.DaysAgo)
	assert.Equal(t, "Cannot change your password to an old one. You used this password 12 days ago", violation.Message)
	assert.Equal(t, []event.EventType{EventPasswordReuseAttempted}, events.types())
	assert.False(t, events.events[0].(PasswordReuseAttempted).Extension)
}

func TestValidateExtensionReuse(t *testing.T) {
	a := userAccount(nil)
	a.history = []HistoryEntry{&testEntry{hash: "plain:Summer2023", createdAt: testNow.Add(-days(1))}}

	disabled := newTestValidator(t, nil, nil)
	violation, err := disabled.Validate(context.Background(), "Summer20231", a)
	require.NoError(t, err)
	assert.Nil(t, violation)

	events := &recordingDispatcher{}
	enabled := newTestValidator(t, events, nil, WithExtensionDetection(true, 4))
	violation, err = enabled.Validate(context.Background(), "Summer20231", a)
	require.NoError(t, err)
	require.NotNil(t, violation)
	assert.Equal(t, CodePasswordExtensionInHistory, violation.Code)
	assert.Contains(t, violation.Message, "1 day ago")
	assert.True(t, events.events[0].(PasswordReuseAttempted).Extension)
}

func TestValidateAcceptsNewPassword(t *testing.T) {
	v := newTestValidator(t, nil, nil, WithExtensionDetection(true, 4))
	a := userAccount(nil)
	a.history = []HistoryEntry{&testEntry{hash: "plain:Summer2023"}}

	violation, err := v.Validate(context.Background(), "CorrectHorseBattery", a)
	require.NoError(t, err)
	assert.Nil(t, violation)

	violation, err = v.Validate(context.Background(), "", a)
	require.NoError(t, err)
	assert.Nil(t, violation)
}

func TestValidateRejectsNonAccountSubject(t *testing.T) {
	v := newTestValidator(t, nil, nil)

	violation, err := v.Validate(context.Background(), "secret", struct{ Name string }{"bob"})

	assert.Nil(t, violation)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidateTranslatesMessage(t *testing.T) {
	tr := mapTranslator{"es": {ReuseMessage: "No puedes reutilizar una contraseña antigua ({{ days }})"}}
	v := newTestValidator(t, nil, tr)
	a := userAccount(nil)
	a.history = []HistoryEntry{&testEntry{hash: "plain:viejo1234", createdAt: testNow}}

	violation, err := v.Validate(WithLocale(context.Background(), "es"), "viejo1234", a)

	require.NoError(t, err)
	require.NotNil(t, violation)
	assert.Equal(t, "No puedes reutilizar una contraseña antigua (today)", violation.Message)
}

func TestHumanizeDaysAgo(t *testing.T) {
	assert.Equal(t, "today", HumanizeDaysAgo(0))
	assert.Equal(t, "1 day ago", HumanizeDaysAgo(1))
	assert.Equal(t, "45 days ago", HumanizeDaysAgo(45))
}
