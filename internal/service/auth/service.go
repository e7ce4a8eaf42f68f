package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/auth"
	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/policy"
	"github.com/jwalitptl/password-policy/pkg/security"
)

type Service struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(accounts repository.AccountRepository, hasher security.PasswordHasher, jwtSvc auth.JWTService, log *logger.Logger) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
		logger:   log,
		now:      time.Now,
	}
}

// Register creates an account. The initial password counts as a tracked change so the
// expiry clock starts at registration.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (model.Principal, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.BadRequest("invalid password", err)
	}

	var account model.Principal
	switch req.AccountType {
	case model.AccountTypeUser:
		account = model.NewUser(strings.ToLower(req.Email), req.Name, hash)
	case model.AccountTypeClinician:
		account = model.NewClinician(strings.ToLower(req.Email), req.Name, req.LicenseNumber, hash)
	default:
		return nil, errors.BadRequest(fmt.Sprintf("unknown account type %q", req.AccountType), repository.ErrUnknownEntity)
	}
	account.SetPasswordChangedAt(s.now())

	if err := s.accounts.Create(ctx, account); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.BadRequest("email already registered", err)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("Account registered", "account_type", account.AccountType(), "account_id", account.AccountID())
	return account, nil
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, req.AccountType, req.Email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(model.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !s.hasher.Verify(req.Password, account.Password()) {
		s.logger.Warn("Failed login", "account_type", req.AccountType, "account_id", account.AccountID())
		return nil, errors.Unauthorized(model.ErrInvalidCredentials)
	}

	token, err := s.jwtSvc.GenerateAccessToken(account.AccountType(), account.AccountID())
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.TTL().Seconds()),
	}, nil
}

// Authenticate validates token and loads the account it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}

	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, errors.Unauthorized(fmt.Errorf("invalid account id in token: %w", err))
	}

	account, err := s.accounts.Get(ctx, claims.AccountType, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(err)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

type principalKey struct{}

// WithPrincipal stores the authenticated account in ctx.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the account stored by WithPrincipal, or nil.
func PrincipalFrom(ctx context.Context) model.Principal {
	p, _ := ctx.Value(principalKey{}).(model.Principal)
	return p
}

// Resolver exposes the request principal to the password policy registry.
func Resolver() policy.PrincipalResolver {
	return policy.PrincipalResolverFunc(func(ctx context.Context) policy.Account {
		if p := PrincipalFrom(ctx); p != nil {
			return p
		}
		return nil
	})
}
