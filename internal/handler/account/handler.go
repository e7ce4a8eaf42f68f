package account

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/flash"
	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/router"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// Flashes pops an account's pending notices.
type Flashes interface {
	Pop(ctx context.Context, a policy.Account) (flash.Messages, error)
}

// Handler serves the pages the expiry gate watches.
type Handler struct {
	flashes Flashes
}

func NewHandler(flashes Flashes) *Handler {
	return &Handler{flashes: flashes}
}

func (h *Handler) RegisterRoutes(r *router.Router) {
	r.Handle("account_profile", http.MethodGet, "/account/profile", middleware.RequireAuth(), h.Profile)
	r.Handle("account_dashboard", http.MethodGet, "/account/dashboard", middleware.RequireAuth(), h.Dashboard)
	r.Handle("account_flashes", http.MethodGet, "/account/flashes", middleware.RequireAuth(), h.Flashes)
	r.Handle("clinician_schedule", http.MethodGet, "/clinician/schedule", middleware.RequireAuth(), h.Schedule)
}

func (h *Handler) Profile(c *gin.Context) {
	p := middleware.Principal(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"account_type":        p.AccountType(),
		"id":                  p.AccountID(),
		"email":               p.EmailAddress(),
		"name":                p.DisplayName(),
		"locale":              p.Locale(),
		"password_changed_at": p.PasswordChangedAt(),
	}))
}

func (h *Handler) Dashboard(c *gin.Context) {
	p := middleware.Principal(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome": p.DisplayName(),
	}))
}

func (h *Handler) Flashes(c *gin.Context) {
	msgs, err := h.flashes.Pop(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(msgs))
}

func (h *Handler) Schedule(c *gin.Context) {
	p := middleware.Principal(c)
	clinician, ok := p.(*model.Clinician)
	if !ok {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("schedule is only available to clinicians"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"clinician": clinician.Name,
		"license":   clinician.LicenseNumber,
		"slots":     []string{},
	}))
}
