package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/router"
	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

// ErrorHandler logs errors attached with c.Error and renders the last one when the
// handler wrote no response of its own. Messages of non-AppErrors are not exposed.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", requestID,
				"route", router.RouteName(c),
				"method", c.Request.Method)
		}
		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		var appErr *errors.AppError
		if errors.As(c.Errors.Last().Err, &appErr) {
			status = appErr.HTTPStatus()
			message = appErr.Message
		}
		c.JSON(status, handler.NewErrorResponse(message))
	}
}
