package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestURL(t *testing.T) {
	r := New(Config{})
	r.Handle("account_profile", http.MethodGet, "/account/profile", func(c *gin.Context) {})
	r.Handle("account_item", http.MethodGet, "/accounts/:type/:id", func(c *gin.Context) {})

	u, err := r.URL("account_profile", nil)
	require.NoError(t, err)
	assert.Equal(t, "/account/profile", u)

	u, err = r.URL("account_item", map[string]string{"type": "user", "id": "a b", "tab": "security"})
	require.NoError(t, err)
	assert.Equal(t, "/accounts/user/a%20b?tab=security", u)

	_, err = r.URL("account_item", map[string]string{"type": "user"})
	assert.True(t, errors.HasCode(err, errors.ErrBadRequest))

	_, err = r.URL("missing", nil)
	assert.True(t, errors.IsRouteNotFound(err))
}

func TestMiddlewarePriorityAndRouteName(t *testing.T) {
	r := New(Config{})
	var order []string
	mark := func(s string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, s+":"+RouteName(c))
			c.Next()
		}
	}
	r.Use(0, mark("low"))
	r.Use(8, mark("auth"))
	r.Use(0, mark("low2"))
	r.Handle("home", http.MethodGet, "/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"auth:home", "low:home", "low2:home"}, order)
}

func TestDuplicateNamePanics(t *testing.T) {
	r := New(Config{})
	r.Handle("home", http.MethodGet, "/", func(c *gin.Context) {})
	assert.Panics(t, func() { r.Handle("home", http.MethodGet, "/other", func(c *gin.Context) {}) })
}

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(Config{MetricsPrefix: "test", Registerer: reg})
	r.Handle("home", http.MethodGet, "/", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.Engine().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	r.Engine().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.requestTotal.WithLabelValues("GET", "home", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.errorTotal.WithLabelValues("GET", "unmatched", "http")))
}
