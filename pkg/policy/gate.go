package policy

import (
	"context"

	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

// Decision is the outcome of gating one request.
type Decision int

const (
	Pass Decision = iota
	Warn
	WarnAndRedirect
)

func (d Decision) String() string {
	switch d {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	case WarnAndRedirect:
		return "WARN_AND_REDIRECT"
	default:
		return "UNKNOWN"
	}
}

// GateInput is everything Decide needs. An empty Route means the request has no route name.
type GateInput struct {
	Route    string
	Locked   bool
	Excluded bool
	Expired  bool
	// RedirectURL is the resolved reset route, empty when redirects are off or resolution failed.
	RedirectURL string
}

// Decide maps a request onto a Decision. Exclusion beats lock whatever the expiry state.
func Decide(in GateInput) Decision {
	switch {
	case in.Route == "":
		return Pass
	case !in.Locked:
		return Pass
	case in.Excluded:
		return Pass
	case !in.Expired:
		return Pass
	case in.RedirectURL != "":
		return WarnAndRedirect
	default:
		return Warn
	}
}

// Outcome is the result of Gate.Check. On WarnAndRedirect the host must stop handling the
// request and redirect to RedirectURL.
type Outcome struct {
	Decision    Decision
	RedirectURL string
	Account     Account
	Config      *Config
	Message     Message
}

type GateConfig struct {
	Expiry     *ExpiryEvaluator
	URLs       URLGenerator
	Notifier   Notifier
	Translator Translator
	Events     event.Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// Gate warns, and optionally redirects, principals whose password expired when they hit a
// locked route. It never fails a request: notifier and route resolution problems are
// logged and skipped.
type Gate struct {
	registry   *Registry
	expiry     *ExpiryEvaluator
	urls       URLGenerator
	notifier   Notifier
	translator Translator
	events     event.Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewGate(reg *Registry, cfg GateConfig) *Gate {
	if cfg.Events == nil {
		cfg.Events = event.Nop
	}
	if cfg.Expiry == nil {
		cfg.Expiry = NewExpiryEvaluator(reg, ExpiryConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	return &Gate{
		registry:   reg,
		expiry:     cfg.Expiry,
		urls:       cfg.URLs,
		notifier:   cfg.Notifier,
		translator: cfg.Translator,
		events:     cfg.Events,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Check gates the current principal's request to route.
func (g *Gate) Check(ctx context.Context, route string) Outcome {
	if route == "" {
		return Outcome{Decision: Pass}
	}
	a := g.registry.CurrentPrincipal(ctx)
	cfg := g.registry.ResolveAccount(a)
	if cfg == nil {
		return Outcome{Decision: Pass}
	}

	out := Outcome{Account: a, Config: cfg}
	in := GateInput{Route: route, Locked: cfg.IsLocked(route)}
	if !in.Locked {
		return g.finish(out, in)
	}

	// expiry is evaluated before the exclusion check so excluded routes still log it
	in.Expired = g.expiry.IsExpired(ctx, a)
	in.Excluded = cfg.IsExcluded(route)
	if in.Expired && !in.Excluded {
		logAt(g.logger, cfg, "Password expired",
			"account_type", a.AccountType(),
			"account_id", a.AccountID(),
			"route", route)
	}
	if Decide(in) == Pass {
		return g.finish(out, in)
	}

	if cfg.RedirectOnExpiry() {
		in.RedirectURL = g.resolveResetURL(cfg)
	}
	out.Message = g.translate(ctx, cfg.ErrorMessage())
	if g.notifier != nil {
		if err := g.notifier.Notify(ctx, cfg.ErrorMessageType(), out.Message); err != nil {
			g.logger.Warn("Password expiry notice not delivered", "account_id", a.AccountID(), "error", err.Error())
		}
	}
	out = g.finish(out, in)

	g.events.Dispatch(ctx, PasswordExpired{Account: a, Route: route, WillRedirect: out.Decision == WarnAndRedirect})
	logAt(g.logger, cfg, "Password expiry notice issued",
		"account_type", a.AccountType(),
		"account_id", a.AccountID(),
		"route", route,
		"decision", out.Decision.String())
	return out
}

func (g *Gate) finish(out Outcome, in GateInput) Outcome {
	out.Decision = Decide(in)
	if out.Decision == WarnAndRedirect {
		out.RedirectURL = in.RedirectURL
	}
	g.metrics.ObserveGate(out.Config.AccountType(), out.Decision.String())
	return out
}

func (g *Gate) resolveResetURL(cfg *Config) string {
	if g.urls == nil {
		g.logger.Warn("No URL generator configured, redirect on expiry disabled", "route", cfg.ResetRouteName())
		return ""
	}
	url, err := g.urls.URL(cfg.ResetRouteName(), nil)
	if err != nil || url == "" {
		g.logger.Error(err, "Could not resolve reset password route, falling back to warning",
			"route", cfg.ResetRouteName(), "account_type", cfg.AccountType())
		return ""
	}
	return url
}

func (g *Gate) translate(ctx context.Context, m Message) Message {
	if g.translator == nil {
		return m
	}
	locale := LocaleFrom(ctx)
	out := Message{Text: g.translator.Translate(m.Text, locale)}
	if m.Title != "" {
		out.Title = g.translator.Translate(m.Title, locale)
	}
	return out
}
