package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the signed-in account.
type Claims struct {
	jwt.RegisteredClaims
	AccountType string `json:"account_type"`
	AccountID   string `json:"account_id"`
}

type JWTService interface {
	GenerateAccessToken(accountType, accountID string) (string, error)
	ValidateToken(token string) (*Claims, error)
	TTL() time.Duration
}

type jwtService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService signs tokens with HS256.
func NewJWTService(secret, issuer string, ttl time.Duration) JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &jwtService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (s *jwtService) TTL() time.Duration { return s.ttl }

func (s *jwtService) GenerateAccessToken(accountType, accountID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		AccountType: accountType,
		AccountID:   accountID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.AccountType == "" || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
