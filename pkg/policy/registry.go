package policy

import (
	"context"

	"github.com/jwalitptl/password-policy/pkg/errors"
)

// Registry maps account types to their Config.
//
// It is filled once at startup through AddConfig (not safe for concurrent use) and is
// read-only afterwards, when any number of goroutines may call the lookup methods.
type Registry struct {
	configs     map[string]*Config
	order       []string
	resetRoutes map[string]string
	principals  PrincipalResolver
}

// NewRegistry validates and registers configs in order. The principal resolver may be nil
// when the host never asks for the current principal.
func NewRegistry(principals PrincipalResolver, configs ...*Config) (*Registry, error) {
	r := &Registry{
		configs:     make(map[string]*Config),
		resetRoutes: make(map[string]string),
		principals:  principals,
	}
	for _, cfg := range configs {
		if err := r.AddConfig(cfg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddConfig registers cfg, rejecting anything that would make gating ambiguous: a second
// config for the same account type, a reset route already owned by another type, or a
// locked route shared with another type unless both exclude it.
func (r *Registry) AddConfig(cfg *Config) error {
	if cfg == nil {
		return errors.Configuration("password policy: nil entity configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, dup := r.configs[cfg.AccountType()]; dup {
		return errors.Configuration("entity %s is configured twice", cfg.AccountType())
	}
	if owner, dup := r.resetRoutes[cfg.ResetRouteName()]; dup {
		return errors.Configuration(
			"duplicate reset_password_route_name %q found in entities %s and %s; each entity must have a unique reset password route",
			cfg.ResetRouteName(), owner, cfg.AccountType())
	}
	for _, route := range cfg.LockedRoutes() {
		for _, other := range r.order {
			o := r.configs[other]
			if !o.IsLocked(route) {
				continue
			}
			if !(o.IsExcluded(route) && cfg.IsExcluded(route)) {
				return errors.Configuration(
					"duplicate notified_route %q found in entities %s and %s; use unique routes per entity or add the route to excluded_notified_routes in both entities",
					route, other, cfg.AccountType())
			}
		}
	}

	r.configs[cfg.AccountType()] = cfg
	r.resetRoutes[cfg.ResetRouteName()] = cfg.AccountType()
	r.order = append(r.order, cfg.AccountType())
	return nil
}

// Resolve returns the config for accountType, or nil when the type is not configured.
func (r *Registry) Resolve(accountType string) *Config {
	if accountType == "" {
		return nil
	}
	return r.configs[accountType]
}

// ResolveAccount returns the config for the account's type.
func (r *Registry) ResolveAccount(a Account) *Config {
	if a == nil {
		return nil
	}
	return r.Resolve(a.AccountType())
}

// CurrentPrincipal asks the host for the account behind the current request.
func (r *Registry) CurrentPrincipal(ctx context.Context) Account {
	if r.principals == nil {
		return nil
	}
	return r.principals.CurrentPrincipal(ctx)
}

// ResolveForCurrentPrincipal returns the config of the current principal's type.
func (r *Registry) ResolveForCurrentPrincipal(ctx context.Context) *Config {
	return r.ResolveAccount(r.CurrentPrincipal(ctx))
}

// Configs returns the registered configs in registration order.
func (r *Registry) Configs() []*Config {
	out := make([]*Config, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.configs[t])
	}
	return out
}
