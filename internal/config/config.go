package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PASSWORD_POLICY"

type Config struct {
	Server         ServerConfig        `mapstructure:"server"`
	Storage        StorageConfig       `mapstructure:"storage"`
	Database       DatabaseConfig      `mapstructure:"database"`
	Redis          RedisConfig         `mapstructure:"redis"`
	JWT            JWTConfig           `mapstructure:"jwt"`
	Mail           MailConfig          `mapstructure:"mail"`
	Log            LogConfig           `mapstructure:"log"`
	RateLimit      RateLimitConfig     `mapstructure:"rate_limit"`
	Retention      RetentionConfig     `mapstructure:"retention"`
	PasswordRules  model.PasswordRules `mapstructure:"password_rules"`
	PasswordPolicy PolicyConfig        `mapstructure:"password_policy" validate:"required"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres memory"`
	// Cache selects the expiry cache and flash store backend.
	Cache string `mapstructure:"cache" validate:"oneof=memory redis"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Prefix       string        `mapstructure:"prefix"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	EventsTopic  string        `mapstructure:"events_topic"`
	EventsGroup  string        `mapstructure:"events_group"`
	StreamMaxLen int64         `mapstructure:"stream_max_len" validate:"gte=0"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" validate:"required"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours" validate:"min=1"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"omitempty,email"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

type RetentionConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size" validate:"gte=0"`
}

// PolicyConfig mirrors the password_policy configuration block.
type PolicyConfig struct {
	EnableCache    bool                    `mapstructure:"enable_cache"`
	CacheTTL       int                     `mapstructure:"cache_ttl" validate:"gte=0"`
	EnableLogging  bool                    `mapstructure:"enable_logging"`
	LogLevel       string                  `mapstructure:"log_level" validate:"omitempty,oneof=debug info notice warning error"`
	ExpiryListener ExpiryListenerConfig    `mapstructure:"expiry_listener"`
	Entities       map[string]EntityConfig `mapstructure:"entities" validate:"required,min=1,dive"`
}

type ExpiryListenerConfig struct {
	Priority     int          `mapstructure:"priority"`
	ErrorMessage ErrorMessage `mapstructure:"error_msg"`
}

// ErrorMessage accepts either a plain string or a {title, message} map.
type ErrorMessage struct {
	Title   string `mapstructure:"title"`
	Message string `mapstructure:"message"`
	Type    string `mapstructure:"type"`
}

type EntityConfig struct {
	PasswordField            string   `mapstructure:"password_field" validate:"required"`
	PasswordHistoryField     string   `mapstructure:"password_history_field" validate:"required"`
	PasswordsToRemember      *int     `mapstructure:"passwords_to_remember" validate:"omitempty,gte=0"`
	ExpiryDays               *int     `mapstructure:"expiry_days" validate:"omitempty,gte=0"`
	ResetPasswordRouteName   string   `mapstructure:"reset_password_route_name" validate:"required"`
	NotifiedRoutes           []string `mapstructure:"notified_routes" validate:"dive,required"`
	ExcludedNotifiedRoutes   []string `mapstructure:"excluded_notified_routes" validate:"dive,required"`
	RedirectOnExpiry         bool     `mapstructure:"redirect_on_expiry"`
	DetectPasswordExtensions bool     `mapstructure:"detect_password_extensions"`
	ExtensionMinLength       int      `mapstructure:"extension_min_length" validate:"gte=0"`
}

// Secrets are read from the environment only.
type Secrets struct {
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	DatabaseHost     string `envconfig:"DB_HOST"`
	RedisURL         string `envconfig:"REDIS_URL"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.cache", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.prefix", "password_policy:")
	v.SetDefault("redis.events_topic", "password_policy.events")
	v.SetDefault("redis.events_group", "password_policy.worker")
	v.SetDefault("redis.stream_max_len", 10000)
	v.SetDefault("jwt.issuer", "password-policy")
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("mail.port", 587)
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.requests_per_second", 1)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("retention.interval", time.Hour)
	v.SetDefault("retention.batch_size", 200)
	v.SetDefault("password_rules.min_length", 8)
	v.SetDefault("password_policy.cache_ttl", 3600)
	v.SetDefault("password_policy.enable_logging", true)
	v.SetDefault("password_policy.log_level", "info")
	v.SetDefault("password_policy.expiry_listener.priority", 0)
	v.SetDefault("password_policy.expiry_listener.error_msg.title", policy.DefaultErrorTitleKey)
	v.SetDefault("password_policy.expiry_listener.error_msg.message", policy.DefaultErrorMessageKey)
	v.SetDefault("password_policy.expiry_listener.error_msg.type", policy.DefaultErrorMessageType)
}

// LoadConfig reads the YAML file at path, or config.yaml from ".", "./config" when path is
// empty, applies PASSWORD_POLICY_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	normalizeErrorMessage(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyEntityDefaults()

	if err := cfg.applySecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeErrorMessage rewrites an error_msg given as a bare string into the map form.
func normalizeErrorMessage(v *viper.Viper) {
	const key = "password_policy.expiry_listener.error_msg"
	if s, ok := v.Get(key).(string); ok {
		v.Set(key, map[string]interface{}{
			"message": s,
			"type":    policy.DefaultErrorMessageType,
		})
	}
}

func (c *Config) applyEntityDefaults() {
	for name, e := range c.PasswordPolicy.Entities {
		if e.PasswordField == "" {
			e.PasswordField = policy.DefaultPasswordField
		}
		if e.PasswordHistoryField == "" {
			e.PasswordHistoryField = policy.DefaultHistoryField
		}
		if e.PasswordsToRemember == nil {
			n := policy.DefaultHistoryLimit
			e.PasswordsToRemember = &n
		}
		if e.ExpiryDays == nil {
			n := policy.DefaultExpiryDays
			e.ExpiryDays = &n
		}
		if e.ExtensionMinLength == 0 {
			e.ExtensionMinLength = policy.DefaultExtensionMinLength
		}
		c.PasswordPolicy.Entities[name] = e
	}
}

func (c *Config) applySecrets() error {
	var s Secrets
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.DatabaseHost != "" {
		c.Database.Host = s.DatabaseHost
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.SMTPPassword != "" {
		c.Mail.Password = s.SMTPPassword
	}
	if s.LogLevel != "" {
		c.Log.Level = s.LogLevel
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints, then cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.Driver == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("invalid configuration: database.host is required for the postgres driver")
	}
	if c.Storage.Cache == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("invalid configuration: redis.url is required for the redis cache")
	}
	return nil
}

// PolicyConfigs turns the entities block into policy configs, sorted by account type. The
// same history factory serves every entity.
func (c *Config) PolicyConfigs(factory policy.HistoryFactory) ([]*policy.Config, error) {
	pp := c.PasswordPolicy
	names := make([]string, 0, len(pp.Entities))
	for name := range pp.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	msg := pp.ExpiryListener.ErrorMessage
	out := make([]*policy.Config, 0, len(names))
	for _, name := range names {
		e := pp.Entities[name]
		cfg, err := policy.NewConfig(name, e.ResetPasswordRouteName, factory,
			policy.WithPasswordField(e.PasswordField),
			policy.WithHistoryField(e.PasswordHistoryField),
			policy.WithHistoryLimit(*e.PasswordsToRemember),
			policy.WithExpiryDays(*e.ExpiryDays),
			policy.WithLockedRoutes(e.NotifiedRoutes...),
			policy.WithExcludedRoutes(e.ExcludedNotifiedRoutes...),
			policy.WithRedirectOnExpiry(e.RedirectOnExpiry),
			policy.WithExtensionDetection(e.DetectPasswordExtensions, e.ExtensionMinLength),
			policy.WithErrorMessage(policy.Message{Title: msg.Title, Text: msg.Message}, msg.Type),
			policy.WithLogging(pp.EnableLogging, logger.ParseLevel(pp.LogLevel)),
		)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// CacheTTLDuration is zero when caching is disabled.
func (c PolicyConfig) CacheTTLDuration() time.Duration {
	if !c.EnableCache {
		return 0
	}
	return time.Duration(c.CacheTTL) * time.Second
}
