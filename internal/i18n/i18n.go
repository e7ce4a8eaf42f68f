// Package i18n translates password policy messages with golang.org/x/text catalogs.
package i18n

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

// Messages maps a locale to its key -> text table.
type Messages map[string]map[string]string

// DefaultMessages covers the keys the password policy emits.
func DefaultMessages() Messages {
	return Messages{
		"en": {
			policy.DefaultErrorTitleKey:   "Password expired",
			policy.DefaultErrorMessageKey: "Your password has expired. Please change it to continue.",
			policy.ReuseMessage:           policy.ReuseMessage,
		},
		"es": {
			policy.DefaultErrorTitleKey:   "Contraseña caducada",
			policy.DefaultErrorMessageKey: "Tu contraseña ha caducado. Cámbiala para continuar.",
			policy.ReuseMessage:           "No puedes volver a usar una contraseña anterior. Usaste esta contraseña {{ days }}",
		},
		"fr": {
			policy.DefaultErrorTitleKey:   "Mot de passe expiré",
			policy.DefaultErrorMessageKey: "Votre mot de passe a expiré. Veuillez le modifier pour continuer.",
			policy.ReuseMessage:           "Vous ne pouvez pas réutiliser un ancien mot de passe. Vous l'avez utilisé {{ days }}",
		},
	}
}

// Translator implements policy.Translator. Unknown keys are returned unchanged.
type Translator struct {
	catalog *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
}

// New builds a Translator. fallback is used for unknown or empty locales and must be one
// of the locales in messages.
func New(messages Messages, fallback string) (*Translator, error) {
	fb, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback locale %q: %w", fallback, err)
	}
	if _, ok := messages[fallback]; !ok {
		return nil, fmt.Errorf("no messages for fallback locale %q", fallback)
	}

	b := catalog.NewBuilder(catalog.Fallback(fb))
	tags := []language.Tag{fb}

	locales := make([]string, 0, len(messages))
	for l := range messages {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", l, err)
		}
		for key, text := range messages[l] {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, fmt.Errorf("failed to add %s message %q: %w", l, key, err)
			}
		}
		if tag != fb {
			tags = append(tags, tag)
		}
	}

	return &Translator{
		catalog: b,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

func (t *Translator) Translate(key, locale string) string {
	p := message.NewPrinter(t.match(locale), message.Catalog(t.catalog))
	return p.Sprintf(key)
}

// MatchAcceptLanguage picks the best supported locale for an Accept-Language header.
func (t *Translator) MatchAcceptLanguage(header string) string {
	prefs, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(prefs) == 0 {
		return t.tags[0].String()
	}
	_, idx, _ := t.matcher.Match(prefs...)
	return t.tags[idx].String()
}

func (t *Translator) match(locale string) language.Tag {
	if locale == "" {
		return t.tags[0]
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return t.tags[0]
	}
	_, idx, _ := t.matcher.Match(tag)
	return t.tags[idx]
}
