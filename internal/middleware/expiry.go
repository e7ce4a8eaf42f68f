package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/router"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// HeaderPasswordExpired is set on every response the expiry gate warned about.
const HeaderPasswordExpired = "X-Password-Expired"

// PasswordExpiry runs the expiry gate for the matched route. A redirect decision sends
// browsers a 302 to the reset route; JSON clients get 409 with the location so they can
// navigate themselves.
func PasswordExpiry(gate *policy.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := gate.Check(c.Request.Context(), router.RouteName(c))

		switch out.Decision {
		case policy.Warn:
			c.Header(HeaderPasswordExpired, "true")
			c.Next()
		case policy.WarnAndRedirect:
			c.Header(HeaderPasswordExpired, "true")
			if wantsJSON(c) {
				c.Header("Location", out.RedirectURL)
				c.AbortWithStatusJSON(http.StatusConflict, &handler.Response{
					Status:  "error",
					Message: out.Message.Text,
					Data:    gin.H{"redirect": out.RedirectURL},
				})
				return
			}
			c.Redirect(http.StatusFound, out.RedirectURL)
			c.Abort()
		default:
			c.Next()
		}
	}
}

func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
