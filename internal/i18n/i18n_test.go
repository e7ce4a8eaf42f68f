package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

func TestTranslate(t *testing.T) {
	tr, err := New(DefaultMessages(), "en")
	require.NoError(t, err)

	tests := []struct {
		key, locale, want string
	}{
		{policy.DefaultErrorTitleKey, "en", "Password expired"},
		{policy.DefaultErrorTitleKey, "es", "Contraseña caducada"},
		{policy.DefaultErrorTitleKey, "fr-CA", "Mot de passe expiré"},
		{policy.DefaultErrorTitleKey, "de", "Password expired"},
		{policy.DefaultErrorTitleKey, "", "Password expired"},
		{policy.DefaultErrorTitleKey, "???", "Password expired"},
		{"Some custom notice", "es", "Some custom notice"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"/"+tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Translate(tt.key, tt.locale))
		})
	}
}

func TestReuseMessageKeepsPlaceholder(t *testing.T) {
	tr, err := New(DefaultMessages(), "en")
	require.NoError(t, err)
	assert.Contains(t, tr.Translate(policy.ReuseMessage, "es"), "{{ days }}")
	assert.Equal(t, policy.ReuseMessage, tr.Translate(policy.ReuseMessage, "en"))
}

func TestMatchAcceptLanguage(t *testing.T) {
	tr, err := New(DefaultMessages(), "en")
	require.NoError(t, err)

	assert.Equal(t, "fr", tr.MatchAcceptLanguage("fr-FR,fr;q=0.9,en;q=0.8"))
	assert.Equal(t, "es", tr.MatchAcceptLanguage("de;q=0.9, es;q=0.5"))
	assert.Equal(t, "en", tr.MatchAcceptLanguage(""))
}

func TestNewRejectsMissingFallback(t *testing.T) {
	_, err := New(Messages{"es": {"k": "v"}}, "en")
	assert.Error(t, err)
}
