package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewBadRequest("bad input", fmt.Errorf("boom"))
	assert.Equal(t, "bad input: boom", err.Error())
	assert.Equal(t, "boom", err.Unwrap().Error())

	assert.Equal(t, "user not found", NotFound("user", nil).Error())
}

func TestCodePredicatesSeeThroughWrapping(t *testing.T) {
	cfgErr := Configuration("reset route for %s is empty", "user")
	wrapped := fmt.Errorf("loading policy: %w", cfgErr)

	assert.True(t, IsConfiguration(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, "reset route for user is empty", cfgErr.Error())

	assert.True(t, IsRuntimeContract(RuntimeContract("x")))
	assert.True(t, IsValidation(Validation("x")))
	assert.True(t, IsRouteNotFound(RouteNotFound("missing")))
	assert.True(t, IsNotFound(NotFound("account", nil)))
	assert.False(t, IsConfiguration(fmt.Errorf("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("account", nil), 404},
		{BadRequest("bad", nil), 400},
		{Unauthorized(nil), 401},
		{Forbidden("no"), 403},
		{Validation("x"), 422},
		{Internal(fmt.Errorf("db")), 500},
		{Configuration("x"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Error())
	}
	assert.True(t, IsUnauthorized(fmt.Errorf("wrap: %w", Unauthorized(nil))))
}
