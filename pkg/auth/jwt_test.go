package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "password-policy", time.Hour)

	token, err := svc.GenerateAccessToken("clinician", "c-1")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "clinician", claims.AccountType)
	assert.Equal(t, "c-1", claims.AccountID)
	assert.Equal(t, "c-1", claims.Subject)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService("secret", "password-policy", time.Hour)
	token, err := svc.GenerateAccessToken("user", "u-1")
	require.NoError(t, err)

	other := NewJWTService("other-secret", "password-policy", time.Hour)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewJWTService("secret", "someone-else", time.Hour)
	_, err = wrongIssuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewJWTService("secret", "password-policy", time.Minute).(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.GenerateAccessToken("user", "u-1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
