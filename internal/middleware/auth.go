package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/service/auth"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

// ContextPrincipal is the gin context key holding the authenticated account.
const ContextPrincipal = "principal"

// Authenticator resolves a bearer token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

type AuthMiddleware struct {
	authSvc Authenticator
	logger  *logger.Logger
}

func NewAuthMiddleware(authSvc Authenticator, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc, logger: log}
}

// Authenticate loads the account behind a bearer token into the request context. Requests
// without a valid token continue anonymously; RequireAuth rejects them.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		principal, err := m.authSvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			m.logger.Debug("Ignoring invalid token", "error", err.Error(), "request_id", c.GetString(ContextRequestID))
			c.Next()
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAuth aborts anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) == nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated account, or nil.
func Principal(c *gin.Context) model.Principal {
	return auth.PrincipalFrom(c.Request.Context())
}
