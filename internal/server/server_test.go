package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/password-policy/internal/config"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository/memory"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/metrics"
	"github.com/jwalitptl/password-policy/pkg/policy"
	"github.com/jwalitptl/password-policy/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg, err := config.LoadConfig("../../config/config.yaml")
	require.NoError(t, err)
	cfg.RateLimit.Enabled = false

	reg := prometheus.NewRegistry()
	store := cache.NewMemoryStore(time.Hour, time.Minute)
	eng, err := NewEngine(cfg, store, event.Nop, nil, metrics.New("password_policy", reg))
	require.NoError(t, err)

	accounts := memory.NewStore(eng.FlushHook)
	r := NewRouter(Deps{
		Config:   cfg,
		Engine:   eng,
		Accounts: accounts,
		Cache:    store,
		Hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		Registry: reg,
	})
	return &testServer{t: t, handler: r.Engine(), store: accounts}
}

func (s *testServer) do(method, path, token, accept string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// signUp registers an account and returns its id and an access token.
func (s *testServer) signUp(accountType, email, password string) (uuid.UUID, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", "", model.RegisterRequest{
		AccountType:   accountType,
		Email:         email,
		Name:          "Test",
		Password:      password,
		LicenseNumber: "LIC-1",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(http.MethodPost, "/auth/login", "", "", model.LoginRequest{AccountType: accountType, Email: email, Password: password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Data model.TokenResponse `json:"data"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &login))
	return uuid.MustParse(created.Data.ID), login.Data.AccessToken
}

func (s *testServer) expire(accountType string, id uuid.UUID, days int) {
	s.t.Helper()
	a, err := s.store.Get(context.Background(), accountType, id)
	require.NoError(s.t, err)
	a.SetPasswordChangedAt(time.Now().AddDate(0, 0, -days))
}

func TestFreshPasswordPassesLockedRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUp(model.AccountTypeUser, "ada@example.com", "Original1!")

	w := s.do(http.MethodGet, "/account/profile", token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middleware.HeaderPasswordExpired))
}

func TestExpiredUserIsRedirectedAndCanChangePassword(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signUp(model.AccountTypeUser, "ada@example.com", "Original1!")
	s.expire(model.AccountTypeUser, id, 100)

	w := s.do(http.MethodGet, "/account/profile", token, "text/html", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account/password", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/account/dashboard", token, "application/json", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/account/password", w.Header().Get("Location"))
	assert.Contains(t, w.Body.String(), `"redirect":"/account/password"`)

	// excluded routes stay reachable
	w = s.do(http.MethodGet, "/account/flashes", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var flashes struct {
		Data map[string][]policy.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flashes))
	require.Len(t, flashes.Data["error"], 1)
	assert.Equal(t, "Password expired", flashes.Data["error"][0].Title)

	w = s.do(http.MethodGet, "/account/password", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expired":true`)

	w = s.do(http.MethodPost, "/account/password", token, "", model.ChangePasswordRequest{
		CurrentPassword: "Original1!",
		NewPassword:     "Second22!",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"history_count":1`)

	w = s.do(http.MethodGet, "/account/profile", token, "text/html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUp(model.AccountTypeUser, "ada@example.com", "Original1!")

	w := s.do(http.MethodPost, "/account/password", token, "", model.ChangePasswordRequest{CurrentPassword: "Original1!", NewPassword: "Second22!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/account/password", token, "", model.ChangePasswordRequest{CurrentPassword: "Second22!", NewPassword: "Original1!"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), policy.CodePasswordInHistory)
	assert.Contains(t, w.Body.String(), "You used this password today")

	// user entity detects extensions
	w = s.do(http.MethodPost, "/account/password", token, "", model.ChangePasswordRequest{CurrentPassword: "Second22!", NewPassword: "Original1!2"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), policy.CodePasswordExtensionInHistory)
}

func TestExpiredClinicianIsOnlyWarned(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signUp(model.AccountTypeClinician, "grace@example.com", "Original1!")
	s.expire(model.AccountTypeClinician, id, 61)

	w := s.do(http.MethodGet, "/clinician/schedule", token, "text/html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.HeaderPasswordExpired))

	// not locked for clinicians
	w = s.do(http.MethodGet, "/account/profile", token, "text/html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middleware.HeaderPasswordExpired))
}

func TestAnonymousRequests(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/account/profile", "", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/account/profile", "garbage", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "", "", nil).Code)
}
