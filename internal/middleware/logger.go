package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/router"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged: they carry passwords.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		statusCode := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"route", router.RouteName(c),
			"status", statusCode,
			"latency", time.Since(start).String(),
			"user_agent", c.Request.UserAgent(),
		}
		if p := Principal(c); p != nil {
			fields = append(fields, "account_type", p.AccountType(), "account_id", p.AccountID())
		}
		if expired := c.Writer.Header().Get(HeaderPasswordExpired); expired != "" {
			fields = append(fields, "password_expired", true)
		}

		switch {
		case statusCode >= 500:
			log.Log(logger.ErrorLevel, "Server error", fields...)
		case statusCode >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
