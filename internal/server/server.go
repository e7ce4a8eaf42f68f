// Package server assembles the password policy engine and the HTTP host around it.
package server

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/password-policy/internal/config"
	"github.com/jwalitptl/password-policy/internal/flash"
	"github.com/jwalitptl/password-policy/internal/handler/account"
	authhandler "github.com/jwalitptl/password-policy/internal/handler/auth"
	"github.com/jwalitptl/password-policy/internal/handler/health"
	passwordhandler "github.com/jwalitptl/password-policy/internal/handler/password"
	promhandler "github.com/jwalitptl/password-policy/internal/handler/prometheus"
	"github.com/jwalitptl/password-policy/internal/i18n"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/internal/router"
	authsvc "github.com/jwalitptl/password-policy/internal/service/auth"
	passwordsvc "github.com/jwalitptl/password-policy/internal/service/password"
	"github.com/jwalitptl/password-policy/pkg/auth"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
	"github.com/jwalitptl/password-policy/pkg/policy"
	"github.com/jwalitptl/password-policy/pkg/security"
)

// Middleware priorities. The expiry gate's priority comes from configuration.
const (
	PriorityRecovery  = 100
	PriorityRequestID = 90
	PriorityLogger    = 80
	PrioritySecurity  = 70
	PriorityErrors    = 60
	PriorityAuth      = 8
	PriorityLocale    = 7
)

// Engine bundles the password policy components built from configuration.
type Engine struct {
	Registry    *policy.Registry
	Expiry      *policy.ExpiryEvaluator
	Interceptor *policy.Interceptor
	FlushHook   *policy.FlushHook
	Detector    *policy.ReuseDetector
	Validator   *policy.ReuseValidator
	Translator  *i18n.Translator
	Events      event.Dispatcher
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// NewEngine validates the password_policy block and builds the engine. Configuration
// errors are returned as errors.IsConfiguration.
func NewEngine(cfg *config.Config, store cache.Store, events event.Dispatcher, log *logger.Logger, m *metrics.Metrics) (*Engine, error) {
	configs, err := cfg.PolicyConfigs(model.NewPasswordHistory)
	if err != nil {
		return nil, err
	}
	reg, err := policy.NewRegistry(authsvc.Resolver(), configs...)
	if err != nil {
		return nil, err
	}

	translator, err := i18n.New(i18n.DefaultMessages(), "en")
	if err != nil {
		return nil, fmt.Errorf("failed to build translator: %w", err)
	}

	ttl := cfg.PasswordPolicy.CacheTTLDuration()
	if ttl == 0 {
		store = nil
	}
	expiry := policy.NewExpiryEvaluator(reg, policy.ExpiryConfig{
		Cache:    store,
		CacheTTL: ttl,
		Logger:   log,
		Metrics:  m,
	})
	interceptor := policy.NewInterceptor(reg, policy.InterceptorConfig{
		Expiry:  expiry,
		Events:  events,
		Logger:  log,
		Metrics: m,
	})
	detector := policy.NewReuseDetector(security.NewMultiVerifier(), m)

	return &Engine{
		Registry:    reg,
		Expiry:      expiry,
		Interceptor: interceptor,
		FlushHook:   policy.NewFlushHook(reg, interceptor),
		Detector:    detector,
		Validator: policy.NewReuseValidator(reg, detector, policy.ReuseValidatorConfig{
			Events:     events,
			Translator: translator,
			Logger:     log,
			Metrics:    m,
		}),
		Translator: translator,
		Events:     events,
		Metrics:    m,
		Logger:     log,
	}, nil
}

// Deps are the host services the router is built from.
type Deps struct {
	Config       *config.Config
	Engine       *Engine
	Accounts     repository.AccountRepository
	Cache        cache.Store
	Hasher       security.PasswordHasher
	Registry     *prometheus.Registry
	HealthChecks map[string]health.Pinger
}

// NewRouter wires middleware, services and handlers into a router.
func NewRouter(d Deps) *router.Router {
	cfg := d.Config
	eng := d.Engine
	log := eng.Logger

	r := router.New(router.Config{MetricsPrefix: "password_policy_http", Registerer: d.Registry})

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authService := authsvc.NewService(d.Accounts, d.Hasher, jwtSvc, log)
	passwordService := passwordsvc.NewService(d.Accounts, d.Hasher, eng.Registry, eng.Validator, eng.Expiry, cfg.PasswordRules, log)
	flashes := flash.NewBag(d.Cache, authsvc.Resolver(), flash.DefaultTTL)

	gate := policy.NewGate(eng.Registry, policy.GateConfig{
		Expiry:     eng.Expiry,
		URLs:       r,
		Notifier:   flashes,
		Translator: eng.Translator,
		Events:     eng.Events,
		Logger:     log,
		Metrics:    eng.Metrics,
	})

	r.Use(PriorityRecovery, middleware.Recovery(log))
	r.Use(PriorityRequestID, middleware.RequestID())
	r.Use(PriorityLogger, middleware.Logger(log))
	r.Use(PrioritySecurity, middleware.SecurityHeaders(middleware.DefaultSecurityConfig()))
	r.Use(PriorityErrors, middleware.ErrorHandler(log))
	r.Use(PriorityAuth, middleware.NewAuthMiddleware(authService, log).Authenticate())
	r.Use(PriorityLocale, middleware.Locale(eng.Translator))
	r.Use(cfg.PasswordPolicy.ExpiryListener.Priority, middleware.PasswordExpiry(gate))

	passwordHandler := passwordhandler.NewHandler(passwordService)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		passwordHandler.Use(limiter.RateLimit())
	}

	health.NewHandler(d.HealthChecks).RegisterRoutes(r)
	if d.Registry != nil {
		promhandler.New(d.Registry).RegisterRoutes(r)
	}
	authhandler.NewHandler(authService).RegisterRoutes(r)
	account.NewHandler(flashes).RegisterRoutes(r)
	passwordHandler.RegisterRoutes(r)

	return r
}
