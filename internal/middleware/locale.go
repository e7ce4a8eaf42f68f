package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/pkg/policy"
)

// LocaleMatcher picks a supported locale from an Accept-Language header.
type LocaleMatcher interface {
	MatchAcceptLanguage(header string) string
}

// Locale stores the request locale for translated notices. A signed-in account's
// preferred language wins over the Accept-Language header.
func Locale(m LocaleMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := ""
		if p := Principal(c); p != nil {
			locale = p.Locale()
		}
		if locale == "" {
			locale = m.MatchAcceptLanguage(c.GetHeader("Accept-Language"))
		}
		c.Set("locale", locale)
		c.Request = c.Request.WithContext(policy.WithLocale(c.Request.Context(), locale))
		c.Next()
	}
}
