package password

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/router"
	passwordsvc "github.com/jwalitptl/password-policy/internal/service/password"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

type Service interface {
	ChangePassword(ctx context.Context, account model.Principal, current, next string) (*policy.Violation, error)
	Status(ctx context.Context, account model.Principal) passwordsvc.Status
}

type Handler struct {
	svc    Service
	submit []gin.HandlerFunc
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes adds one reset page per account type and a shared submit route.
func (h *Handler) RegisterRoutes(r *router.Router) {
	r.Handle("user_password_change", http.MethodGet, "/account/password",
		middleware.RequireAuth(), requireType(model.AccountTypeUser), h.Show)
	r.Handle("clinician_password_change", http.MethodGet, "/clinician/password",
		middleware.RequireAuth(), requireType(model.AccountTypeClinician), h.Show)
	submit := append([]gin.HandlerFunc{middleware.RequireAuth()}, h.submit...)
	r.Handle("password_change_submit", http.MethodPost, "/account/password", append(submit, h.Change)...)
}

// Use adds middleware to the submit route only. Call before RegisterRoutes.
func (h *Handler) Use(handlers ...gin.HandlerFunc) {
	h.submit = append(h.submit, handlers...)
}

func (h *Handler) Show(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Status(c.Request.Context(), middleware.Principal(c))))
}

func (h *Handler) Change(c *gin.Context) {
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	principal := middleware.Principal(c)
	violation, err := h.svc.ChangePassword(c.Request.Context(), principal, req.CurrentPassword, req.NewPassword)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if violation != nil {
		c.JSON(http.StatusUnprocessableEntity, &handler.Response{
			Status:  "error",
			Message: violation.Message,
			Data:    violation,
		})
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.svc.Status(c.Request.Context(), principal)))
}

func requireType(accountType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := middleware.Principal(c); p == nil || p.AccountType() != accountType {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("not available for this account type"))
			return
		}
		c.Next()
	}
}
