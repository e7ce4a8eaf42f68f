package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig controls the headers SecurityHeaders sets.
type SecurityConfig struct {
	HSTSMaxAge   int
	FrameOptions string
	CSP          []string
	NoStore      bool
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:   31536000,
		FrameOptions: "DENY",
		CSP:          []string{"default-src 'self'", "frame-ancestors 'none'", "form-action 'self'"},
		NoStore:      true,
	}
}

// SecurityHeaders sets the static response headers. HSTS is only sent over TLS
// or when a proxy reports https.
func SecurityHeaders(cfg SecurityConfig) gin.HandlerFunc {
	static := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
	}
	if cfg.FrameOptions != "" {
		static["X-Frame-Options"] = cfg.FrameOptions
	}
	if len(cfg.CSP) > 0 {
		static["Content-Security-Policy"] = strings.Join(cfg.CSP, "; ")
	}
	if cfg.NoStore {
		static["Cache-Control"] = "no-store"
		static["Pragma"] = "no-cache"
	}
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range static {
			h.Set(k, v)
		}
		if hsts != "" && (c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https") {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}
