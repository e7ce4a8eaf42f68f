package policy

import (
	"sort"

	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

const (
	DefaultPasswordField      = "password"
	DefaultHistoryField       = "passwordHistory"
	DefaultHistoryLimit       = 3
	DefaultExpiryDays         = 90
	DefaultErrorMessageType   = "error"
	DefaultExtensionMinLength = 4
	DefaultErrorTitleKey      = "nowo_password_policy.title"
	DefaultErrorMessageKey    = "nowo_password_policy.message"
)

// Config is the immutable policy for one account type. Build it with NewConfig.
type Config struct {
	accountType        string
	expiryDays         int
	passwordField      string
	historyField       string
	historyLimit       int
	lockedRoutes       map[string]struct{}
	excludedRoutes     map[string]struct{}
	resetRouteName     string
	redirectOnExpiry   bool
	detectExtensions   bool
	extensionMinLength int
	errorMessage       Message
	errorMessageType   string
	loggingEnabled     bool
	logLevel           logger.Level
	newHistory         HistoryFactory
}

type Option func(*Config)

func WithExpiryDays(days int) Option { return func(c *Config) { c.expiryDays = days } }

func WithPasswordField(name string) Option { return func(c *Config) { c.passwordField = name } }

func WithHistoryField(name string) Option { return func(c *Config) { c.historyField = name } }

func WithHistoryLimit(n int) Option { return func(c *Config) { c.historyLimit = n } }

func WithLockedRoutes(routes ...string) Option {
	return func(c *Config) {
		for _, r := range routes {
			c.lockedRoutes[r] = struct{}{}
		}
	}
}

func WithExcludedRoutes(routes ...string) Option {
	return func(c *Config) {
		for _, r := range routes {
			c.excludedRoutes[r] = struct{}{}
		}
	}
}

func WithRedirectOnExpiry(on bool) Option { return func(c *Config) { c.redirectOnExpiry = on } }

// WithExtensionDetection enables the heuristic extension check for reuse validation.
func WithExtensionDetection(on bool, minBaseLength int) Option {
	return func(c *Config) {
		c.detectExtensions = on
		if minBaseLength > 0 {
			c.extensionMinLength = minBaseLength
		}
	}
}

// WithErrorMessage sets the expiry notice. Empty fields keep their defaults.
func WithErrorMessage(msg Message, msgType string) Option {
	return func(c *Config) {
		if msg.Title != "" || msg.Text != "" {
			c.errorMessage = msg
		}
		if msgType != "" {
			c.errorMessageType = msgType
		}
	}
}

func WithLogging(enabled bool, level logger.Level) Option {
	return func(c *Config) {
		c.loggingEnabled = enabled
		c.logLevel = level
	}
}

// NewConfig builds and validates a Config.
func NewConfig(accountType, resetRouteName string, factory HistoryFactory, opts ...Option) (*Config, error) {
	c := &Config{
		accountType:        accountType,
		expiryDays:         DefaultExpiryDays,
		passwordField:      DefaultPasswordField,
		historyField:       DefaultHistoryField,
		historyLimit:       DefaultHistoryLimit,
		lockedRoutes:       make(map[string]struct{}),
		excludedRoutes:     make(map[string]struct{}),
		resetRouteName:     resetRouteName,
		extensionMinLength: DefaultExtensionMinLength,
		errorMessage:       Message{Title: DefaultErrorTitleKey, Text: DefaultErrorMessageKey},
		errorMessageType:   DefaultErrorMessageType,
		loggingEnabled:     true,
		logLevel:           logger.InfoLevel,
		newHistory:         factory,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports structural misconfiguration as a configuration error.
func (c *Config) Validate() error {
	switch {
	case c.accountType == "":
		return errors.Configuration("password policy: account type is required")
	case c.resetRouteName == "":
		return errors.Configuration("reset_password_route_name is required for entity %s", c.accountType)
	case c.passwordField == "":
		return errors.Configuration("password_field is required for entity %s", c.accountType)
	case c.historyField == "":
		return errors.Configuration("password_history_field is required for entity %s", c.accountType)
	case c.expiryDays < 0:
		return errors.Configuration("expiry_days for entity %s must not be negative", c.accountType)
	case c.historyLimit < 0:
		return errors.Configuration("passwords_to_remember for entity %s must not be negative", c.accountType)
	case c.newHistory == nil:
		return errors.Configuration("entity %s has no password history type for field %s", c.accountType, c.historyField)
	}
	if _, ok := c.lockedRoutes[""]; ok {
		return errors.Configuration("invalid notified_route for entity %s: routes must be non-empty strings", c.accountType)
	}
	if _, ok := c.excludedRoutes[""]; ok {
		return errors.Configuration("invalid excluded_notified_route for entity %s: routes must be non-empty strings", c.accountType)
	}
	return nil
}

func (c *Config) AccountType() string { return c.accountType }
func (c *Config) ExpiryDays() int { return c.expiryDays }
func (c *Config) PasswordField() string { return c.passwordField }
func (c *Config) HistoryField() string { return c.historyField }
func (c *Config) HistoryLimit() int { return c.historyLimit }
func (c *Config) ResetRouteName() string { return c.resetRouteName }
func (c *Config) RedirectOnExpiry() bool { return c.redirectOnExpiry }
func (c *Config) DetectExtensions() bool { return c.detectExtensions }
func (c *Config) ExtensionMinLength() int { return c.extensionMinLength }
func (c *Config) ErrorMessage() Message { return c.errorMessage }
func (c *Config) ErrorMessageType() string { return c.errorMessageType }
func (c *Config) LoggingEnabled() bool { return c.loggingEnabled }
func (c *Config) LogLevel() logger.Level { return c.logLevel }
func (c *Config) HistoryFactory() HistoryFactory { return c.newHistory }

func (c *Config) IsLocked(route string) bool {
	_, ok := c.lockedRoutes[route]
	return ok
}

func (c *Config) IsExcluded(route string) bool {
	_, ok := c.excludedRoutes[route]
	return ok
}

// LockedRoutes returns the locked route names, sorted.
func (c *Config) LockedRoutes() []string { return sortedKeys(c.lockedRoutes) }

// ExcludedRoutes returns the excluded route names, sorted.
func (c *Config) ExcludedRoutes() []string { return sortedKeys(c.excludedRoutes) }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
