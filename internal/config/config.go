package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STOREFRONT"

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Redis   RedisConfig   `mapstructure:"redis"`
	PayPal  PayPalConfig  `mapstructure:"paypal"`
	Session SessionConfig `mapstructure:"session"`
	Render  RenderConfig  `mapstructure:"render"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
	PublicDir     string        `mapstructure:"public_dir"`
	Secure        bool          `mapstructure:"secure"`
}

// APIConfig points at the commerce API. An empty BaseURL runs the built-in catalog.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables Redis-backed persistence when Addr is set.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// PayPalConfig configures the checkout script.
type PayPalConfig struct {
	ClientID string `mapstructure:"client_id"`
	SDKURL   string `mapstructure:"sdk_url"`
	Currency string `mapstructure:"currency"`
}

// SessionConfig controls the browser session cookie and viewer lifetime.
type SessionConfig struct {
	SigningKey  string        `mapstructure:"signing_key"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	SweepEvery  time.Duration `mapstructure:"sweep_every"`
}

// RenderConfig controls template loading.
type RenderConfig struct {
	TemplatesDir string `mapstructure:"templates_dir"`
	Dev          bool   `mapstructure:"dev"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises configuration loading.
type Option func(*loaderOptions)

type loaderOptions struct {
	file      string
	overrides map[string]any
}

// WithFile reads a YAML file in addition to the environment.
func WithFile(path string) Option {
	return func(o *loaderOptions) { o.file = strings.TrimSpace(path) }
}

// WithOverrides sets values by key, as if they came from the environment. Used in tests.
func WithOverrides(values map[string]any) Option {
	return func(o *loaderOptions) {
		if o.overrides == nil {
			o.overrides = map[string]any{}
		}
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

// Load resolves configuration from defaults, an optional file and STOREFRONT_* variables.
func Load(opts ...Option) (Config, error) {
	var lo loaderOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&lo)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lo.file != "" {
		v.SetConfigFile(lo.file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", lo.file, err)
		}
	}
	for k, val := range lo.overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.settle_timeout", 1500*time.Millisecond)
	v.SetDefault("server.public_dir", "public")
	v.SetDefault("server.secure", false)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 8*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "storefront:")
	v.SetDefault("redis.ttl", 30*24*time.Hour)
	v.SetDefault("paypal.client_id", "sb")
	v.SetDefault("paypal.sdk_url", "https://www.paypal.com/sdk/js")
	v.SetDefault("paypal.currency", "USD")
	v.SetDefault("session.signing_key", "")
	v.SetDefault("session.idle_timeout", 2*time.Hour)
	v.SetDefault("session.sweep_every", time.Minute)
	v.SetDefault("render.templates_dir", "templates")
	v.SetDefault("render.dev", false)
	v.SetDefault("log.level", "info")
}

func (c *Config) normalise() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	c.PayPal.Currency = strings.ToUpper(strings.TrimSpace(c.PayPal.Currency))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate reports every missing or invalid field at once.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		missing = append(missing, "server.addr")
	}
	if c.Server.SettleTimeout <= 0 {
		missing = append(missing, "server.settle_timeout")
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		missing = append(missing, "api.base_url")
	}
	if c.Redis.Addr != "" && c.Redis.PoolSize <= 0 {
		missing = append(missing, "redis.pool_size")
	}
	if strings.TrimSpace(c.PayPal.ClientID) == "" {
		missing = append(missing, "paypal.client_id")
	}
	if len(c.PayPal.Currency) != 3 {
		missing = append(missing, "paypal.currency")
	}
	if c.Session.IdleTimeout <= 0 {
		missing = append(missing, "session.idle_timeout")
	}
	if c.Server.Secure && len(c.Session.SigningKey) < 32 {
		missing = append(missing, "session.signing_key")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "log.level")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{fields: missing}
	}
	return nil
}

// IsValidation reports whether err is a configuration validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
