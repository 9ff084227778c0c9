package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Link issuing and resolution
	App AppConfig `mapstructure:"app"`

	// Redirect destinations per client platform
	Redirect RedirectConfig `mapstructure:"redirect"`

	// Redis (ephemeral link store)
	Redis RedisConfig `mapstructure:"redis"`

	// NATS (link lifecycle events)
	NATS NATSConfig `mapstructure:"nats"`

	// PostgreSQL (link event audit log)
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	Events EventsConfig `mapstructure:"events"`
}

type AppConfig struct {
	Env             string        `mapstructure:"env"`
	Port            int           `mapstructure:"port"`
	SecretKey       string        `mapstructure:"secret_key"`
	Domain          string        `mapstructure:"domain"`
	RedirectPrefix  string        `mapstructure:"redirect_prefix"`
	LinkTTL         time.Duration `mapstructure:"link_ttl"`
	StoreTimeout    time.Duration `mapstructure:"store_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type RedirectConfig struct {
	PrimaryScheme    string        `mapstructure:"primary_scheme"`
	SecondaryScheme  string        `mapstructure:"secondary_scheme"`
	AndroidScheme    string        `mapstructure:"android_scheme"`
	AndroidPackage   string        `mapstructure:"android_package"`
	AndroidStoreURL  string        `mapstructure:"android_store_url"`
	WebURL           string        `mapstructure:"web_url"`
	IOSRetryDelay    time.Duration `mapstructure:"ios_retry_delay"`
	IOSFallbackDelay time.Duration `mapstructure:"ios_fallback_delay"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// EventsConfig toggles the NATS -> Postgres link event pipeline.
type EventsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

var (
	ErrMissingSecretKey = errors.New("config: app.secret_key is required")
	ErrMissingDomain    = errors.New("config: app.domain is required")
)

// IsDevelopment reports whether the service runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.App.Env != "production"
}

// Validate checks the settings the link service cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.SecretKey) == "" {
		return ErrMissingSecretKey
	}
	if strings.TrimSpace(c.App.Domain) == "" {
		return ErrMissingDomain
	}
	if c.App.LinkTTL <= 0 {
		return fmt.Errorf("config: app.link_ttl must be positive, got %s", c.App.LinkTTL)
	}
	if !strings.HasPrefix(c.App.RedirectPrefix, "/") {
		return fmt.Errorf("config: app.redirect_prefix must start with '/', got %q", c.App.RedirectPrefix)
	}
	return nil
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.App.Domain = strings.TrimRight(cfg.App.Domain, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.redirect_prefix", "/p")
	v.SetDefault("app.link_ttl", 10*time.Minute)
	v.SetDefault("app.store_timeout", 2*time.Second)
	v.SetDefault("app.shutdown_timeout", 15*time.Second)

	v.SetDefault("redirect.primary_scheme", "bank100000000004")
	v.SetDefault("redirect.secondary_scheme", "tinkoffbank")
	v.SetDefault("redirect.android_scheme", "tinkoffbank")
	v.SetDefault("redirect.android_package", "ru.tinkoff.android")
	v.SetDefault("redirect.android_store_url", "https://rustore.ru/app/tinkoff")
	v.SetDefault("redirect.web_url", "https://tpay-web.com/pay")
	v.SetDefault("redirect.ios_retry_delay", time.Second)
	v.SetDefault("redirect.ios_fallback_delay", 2*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.retention", 30*24*time.Hour)
	v.SetDefault("events.sweep_interval", 10*time.Minute)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.secret_key", "APP_SECRET_KEY")
	v.BindEnv("app.domain", "APP_DOMAIN")
	v.BindEnv("app.redirect_prefix", "APP_REDIRECT_PREFIX")
	v.BindEnv("app.link_ttl", "APP_LINK_TTL")
	v.BindEnv("app.store_timeout", "APP_STORE_TIMEOUT")
	v.BindEnv("app.allowed_origins", "APP_ALLOWED_ORIGINS")

	// Redirect targets
	v.BindEnv("redirect.web_url", "REDIRECT_WEB_URL")
	v.BindEnv("redirect.android_store_url", "REDIRECT_ANDROID_STORE_URL")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Prometheus
	v.BindEnv("prometheus.enabled", "PROM_ENABLED")
	v.BindEnv("prometheus.port", "PROM_PORT")

	// Events
	v.BindEnv("events.enabled", "EVENTS_ENABLED")
}
