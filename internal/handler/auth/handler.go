package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/password-policy/internal/handler"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/router"
)

type Service interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.Principal, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *router.Router) {
	r.Handle("auth_register", http.MethodPost, "/auth/register", h.Register)
	r.Handle("auth_login", http.MethodPost, "/auth/login", h.Login)
	r.Handle("auth_logout", http.MethodPost, "/auth/logout", middleware.RequireAuth(), h.Logout)
}

type accountResponse struct {
	AccountType string `json:"account_type"`
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

func newAccountResponse(p model.Principal) accountResponse {
	return accountResponse{
		AccountType: p.AccountType(),
		ID:          p.AccountID(),
		Email:       p.EmailAddress(),
		Name:        p.DisplayName(),
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(newAccountResponse(account)))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

// Logout is stateless: tokens expire on their own and the client drops its copy.
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"logged_out": true}))
}
