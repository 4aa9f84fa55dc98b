package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Stripe   StripeConfig
	Callback CallbackConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PublicBaseURL string // Absolute URL registrants reach the service on.
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// StripeConfig holds the organization-wide Stripe settings.
type StripeConfig struct {
	PublishableKey  string
	SecretKey       string
	OrgName         string
	Description     string
	MethodName      string
	APIURL          string
	Timeout         time.Duration
	BreakerTimeout  time.Duration
	BreakerFailures uint32
}

// CallbackConfig holds callback reconciliation and caching settings.
type CallbackConfig struct {
	DedupTTL          time.Duration
	SettingsCacheTTL  time.Duration
	IdempotencyTTL    time.Duration
	FlashCookieSecure bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("public_base_url", "http://localhost:8080")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "indico")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("new_relic.app_name", "stripe-payments")
	v.SetDefault("new_relic.license_key", "")
	v.SetDefault("new_relic.enabled", false)

	v.SetDefault("stripe.publishable_key", "")
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.org_name", "Organization")
	v.SetDefault("stripe.description", "Payment for conference")
	v.SetDefault("stripe.method_name", "Stripe")
	v.SetDefault("stripe.api_url", "")
	v.SetDefault("stripe.timeout", 10*time.Second)
	v.SetDefault("stripe.breaker_timeout", 30*time.Second)
	v.SetDefault("stripe.breaker_failures", 5)

	v.SetDefault("callback.dedup_ttl", 24*time.Hour)
	v.SetDefault("settings_cache_ttl", 30*time.Second)
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("flash_cookie_secure", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. Nested keys map
// to environment variables with dots replaced by underscores, so
// stripe.secret_key is read from STRIPE_SECRET_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          v.GetString("server.port"),
			ReadTimeout:   v.GetDuration("server.read_timeout"),
			WriteTimeout:  v.GetDuration("server.write_timeout"),
			PublicBaseURL: v.GetString("public_base_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetString("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("new_relic.app_name"),
			LicenseKey: v.GetString("new_relic.license_key"),
			Enabled:    v.GetBool("new_relic.enabled"),
		},
		Stripe: StripeConfig{
			PublishableKey:  v.GetString("stripe.publishable_key"),
			SecretKey:       v.GetString("stripe.secret_key"),
			OrgName:         v.GetString("stripe.org_name"),
			Description:     v.GetString("stripe.description"),
			MethodName:      v.GetString("stripe.method_name"),
			APIURL:          v.GetString("stripe.api_url"),
			Timeout:         v.GetDuration("stripe.timeout"),
			BreakerTimeout:  v.GetDuration("stripe.breaker_timeout"),
			BreakerFailures: v.GetUint32("stripe.breaker_failures"),
		},
		Callback: CallbackConfig{
			DedupTTL:          v.GetDuration("callback.dedup_ttl"),
			SettingsCacheTTL:  v.GetDuration("settings_cache_ttl"),
			IdempotencyTTL:    v.GetDuration("idempotency_ttl"),
			FlashCookieSecure: v.GetBool("flash_cookie_secure"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	base, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.Server.PublicBaseURL))
	}
	if c.Stripe.Timeout <= 0 {
		errs = append(errs, errors.New("STRIPE_TIMEOUT must be positive"))
	}
	if c.Callback.DedupTTL <= 0 {
		errs = append(errs, errors.New("CALLBACK_DEDUP_TTL must be positive"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
