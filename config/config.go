// Package config loads and validates service configuration from environment
// variables and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// Backend selects the persistence boundary implementation.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendPostgres Backend = "postgres"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	FrontendURL    string      `mapstructure:"FRONTEND_URL" yaml:"frontend_url"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For is honoured. Empty trusts none.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL connection details for the postgres backend
// and the reporting connection.
type DatabaseConfig struct {
	Backend          Backend `mapstructure:"BACKEND" yaml:"backend"`
	Host             string  `mapstructure:"HOST" yaml:"host"`
	Port             int     `mapstructure:"PORT" yaml:"port"`
	User             string  `mapstructure:"USER" yaml:"user"`
	Password         string  `mapstructure:"PASSWORD" yaml:"password"`
	Name             string  `mapstructure:"NAME" yaml:"name"`
	SSLMode          string  `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections   int     `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	MaxOpenConns     int     `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns     int     `mapstructure:"MAX_IDLE_CONNS" yaml:"max_idle_conns"`
	ConnMaxLife      string  `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
	ReportingEnabled bool    `mapstructure:"REPORTING_ENABLED" yaml:"reporting_enabled"`
	RunMigrations    bool    `mapstructure:"RUN_MIGRATIONS" yaml:"run_migrations"`
}

// URL returns a postgres:// connection URL for pgx and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// DSN returns the key/value form accepted by lib/pq.
func (c *DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// ExternalServices holds Supabase credentials.
type ExternalServices struct {
	SupabaseAnonKey    string `mapstructure:"SUPABASE_ANON_KEY" yaml:"supabase_anon_key"`
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY" yaml:"supabase_service_key"`
	SupabaseURL        string `mapstructure:"SUPABASE_URL" yaml:"supabase_url"`
	SupabaseJWTSecret  string `mapstructure:"SUPABASE_JWT_SECRET" yaml:"supabase_jwt_secret"`
}

// EmailConfig holds configuration for sending emails through Resend.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName     string `mapstructure:"FROM_NAME" yaml:"from_name"`
	BaseURL      string `mapstructure:"BASE_URL" yaml:"base_url"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
}

// Enabled reports whether outbound email can be sent.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.FromAddress != ""
}

// EventServiceConfig configures lifecycle event publishing over Redis.
type EventServiceConfig struct {
	Channel                 string `mapstructure:"CHANNEL" yaml:"channel"`
	PublishTimeoutSeconds   int    `mapstructure:"PUBLISH_TIMEOUT_SECONDS" yaml:"publish_timeout_seconds"`
	SubscribeTimeoutSeconds int    `mapstructure:"SUBSCRIBE_TIMEOUT_SECONDS" yaml:"subscribe_timeout_seconds"`
	EventBufferSize         int    `mapstructure:"EVENT_BUFFER_SIZE" yaml:"event_buffer_size"`
}

// RateLimitConfig limits the public endpoints per client IP.
type RateLimitConfig struct {
	SubmissionsPerWindow int `mapstructure:"SUBMISSIONS_PER_WINDOW" yaml:"submissions_per_window"`
	AutosavesPerWindow   int `mapstructure:"AUTOSAVES_PER_WINDOW" yaml:"autosaves_per_window"`
	WindowSeconds        int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// WorkerPoolConfig holds configuration for the background job pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// AuditConfig configures the audit outbox drainer.
type AuditConfig struct {
	OutboxKey       string `mapstructure:"OUTBOX_KEY" yaml:"outbox_key"`
	DrainIntervalMs int    `mapstructure:"DRAIN_INTERVAL_MS" yaml:"drain_interval_ms"`
	BatchSize       int    `mapstructure:"BATCH_SIZE" yaml:"batch_size"`
	MaxAttempts     int    `mapstructure:"MAX_ATTEMPTS" yaml:"max_attempts"`
}

// DrainInterval returns the drain period as a duration.
func (c AuditConfig) DrainInterval() time.Duration {
	return time.Duration(c.DrainIntervalMs) * time.Millisecond
}

// PublicConfig configures the public submission flow.
type PublicConfig struct {
	StepsPerPage       int    `mapstructure:"STEPS_PER_PAGE" yaml:"steps_per_page"`
	AutosaveDebounceMs int    `mapstructure:"AUTOSAVE_DEBOUNCE_MS" yaml:"autosave_debounce_ms"`
	DraftTTLHours      int    `mapstructure:"DRAFT_TTL_HOURS" yaml:"draft_ttl_hours"`
	SessionSecret      string `mapstructure:"SESSION_SECRET" yaml:"session_secret"`
	SessionTTLHours    int    `mapstructure:"SESSION_TTL_HOURS" yaml:"session_ttl_hours"`
}

func (c PublicConfig) AutosaveDebounce() time.Duration {
	return time.Duration(c.AutosaveDebounceMs) * time.Millisecond
}

func (c PublicConfig) DraftTTL() time.Duration {
	return time.Duration(c.DraftTTLHours) * time.Hour
}

func (c PublicConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// AuthConfig holds authorization settings.
type AuthConfig struct {
	// AdminEmails are always treated as admins regardless of profile role.
	AdminEmails []string `mapstructure:"ADMIN_EMAILS" yaml:"admin_emails"`
}

// StorageConfig points at the S3-compatible bucket used for exports.
type StorageConfig struct {
	Enabled         bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Bucket          string `mapstructure:"BUCKET" yaml:"bucket"`
	Region          string `mapstructure:"REGION" yaml:"region"`
	Endpoint        string `mapstructure:"ENDPOINT" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY" yaml:"secret_access_key"`
}

// SearchConfig toggles server-side form search.
type SearchConfig struct {
	Remote bool `mapstructure:"REMOTE" yaml:"remote"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server           ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Database         DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis            RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	Email            EmailConfig        `mapstructure:"EMAIL" yaml:"email"`
	ExternalServices ExternalServices   `mapstructure:"EXTERNAL_SERVICES" yaml:"external_services"`
	EventService     EventServiceConfig `mapstructure:"EVENT_SERVICE" yaml:"event_service"`
	RateLimit        RateLimitConfig    `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
	WorkerPool       WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
	Audit            AuditConfig        `mapstructure:"AUDIT" yaml:"audit"`
	Public           PublicConfig       `mapstructure:"PUBLIC" yaml:"public"`
	Auth             AuthConfig         `mapstructure:"AUTH" yaml:"auth"`
	Storage          StorageConfig      `mapstructure:"STORAGE" yaml:"storage"`
	Search           SearchConfig       `mapstructure:"SEARCH" yaml:"search"`
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds environment variables to config keys. Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("DATABASE.BACKEND", BackendSupabase)
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "formflow_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 20)
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("DATABASE.REPORTING_ENABLED", false)
	v.SetDefault("DATABASE.RUN_MIGRATIONS", true)
	v.SetDefault("REDIS.ENABLED", true)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("EMAIL.FROM_NAME", "FormFlow")
	v.SetDefault("EVENT_SERVICE.CHANNEL", "formflow:events")
	v.SetDefault("EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("EVENT_SERVICE.SUBSCRIBE_TIMEOUT_SECONDS", 10)
	v.SetDefault("EVENT_SERVICE.EVENT_BUFFER_SIZE", 100)
	v.SetDefault("RATE_LIMIT.SUBMISSIONS_PER_WINDOW", 10)
	v.SetDefault("RATE_LIMIT.AUTOSAVES_PER_WINDOW", 120)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 5)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 500)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("AUDIT.OUTBOX_KEY", "formflow:audit:outbox")
	v.SetDefault("AUDIT.DRAIN_INTERVAL_MS", 2000)
	v.SetDefault("AUDIT.BATCH_SIZE", 50)
	v.SetDefault("AUDIT.MAX_ATTEMPTS", 5)
	v.SetDefault("PUBLIC.STEPS_PER_PAGE", 3)
	v.SetDefault("PUBLIC.AUTOSAVE_DEBOUNCE_MS", 1000)
	v.SetDefault("PUBLIC.DRAFT_TTL_HOURS", 24*7)
	v.SetDefault("PUBLIC.SESSION_TTL_HOURS", 24*7)
	v.SetDefault("AUTH.ADMIN_EMAILS", []string{})
	v.SetDefault("STORAGE.ENABLED", false)
	v.SetDefault("STORAGE.REGION", "auto")
	v.SetDefault("SEARCH.REMOTE", false)
}

// LoadConfig reads defaults, config.yaml (if present) and the environment,
// then unmarshals and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		log.Infow("Config file loaded", "path", v.ConfigFileUsed())
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		{"SERVER.FRONTEND_URL", "FRONTEND_URL"},
		{"DATABASE.BACKEND", "DB_BACKEND"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.REPORTING_ENABLED", "DB_REPORTING_ENABLED"},
		{"REDIS.ENABLED", "REDIS_ENABLED"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"EXTERNAL_SERVICES.SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"},
		{"EXTERNAL_SERVICES.SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
		{"EXTERNAL_SERVICES.SUPABASE_URL", "SUPABASE_URL"},
		{"EXTERNAL_SERVICES.SUPABASE_JWT_SECRET", "SUPABASE_JWT_SECRET"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.BASE_URL", "EMAIL_BASE_URL"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"RATE_LIMIT.SUBMISSIONS_PER_WINDOW", "RATE_LIMIT_SUBMISSIONS_PER_WINDOW"},
		{"RATE_LIMIT.AUTOSAVES_PER_WINDOW", "RATE_LIMIT_AUTOSAVES_PER_WINDOW"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
		{"AUDIT.MAX_ATTEMPTS", "AUDIT_MAX_ATTEMPTS"},
		{"PUBLIC.STEPS_PER_PAGE", "STEPS_PER_PAGE"},
		{"PUBLIC.AUTOSAVE_DEBOUNCE_MS", "AUTOSAVE_DEBOUNCE_MS"},
		{"PUBLIC.SESSION_SECRET", "RESPONDENT_SESSION_SECRET"},
		{"AUTH.ADMIN_EMAILS", "ADMIN_EMAILS"},
		{"STORAGE.ENABLED", "EXPORT_STORAGE_ENABLED"},
		{"STORAGE.BUCKET", "EXPORT_BUCKET"},
		{"STORAGE.REGION", "EXPORT_REGION"},
		{"STORAGE.ENDPOINT", "EXPORT_ENDPOINT"},
		{"STORAGE.ACCESS_KEY_ID", "EXPORT_ACCESS_KEY_ID"},
		{"STORAGE.SECRET_ACCESS_KEY", "EXPORT_SECRET_ACCESS_KEY"},
		{"SEARCH.REMOTE", "SEARCH_REMOTE"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"backend", v.GetString("DATABASE.BACKEND"),
		"redis_enabled", v.GetBool("REDIS.ENABLED"),
		"steps_per_page", v.GetInt("PUBLIC.STEPS_PER_PAGE"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	switch cfg.Database.Backend {
	case BackendSupabase:
		if cfg.ExternalServices.SupabaseURL == "" {
			return fmt.Errorf("supabase URL is required for the supabase backend")
		}
		if cfg.ExternalServices.SupabaseServiceKey == "" {
			return fmt.Errorf("supabase service key is required for the supabase backend")
		}
	case BackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database host, user and name are required for the postgres backend")
		}
		if cfg.Database.Password == "" {
			log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
		}
	default:
		return fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}

	if len(cfg.ExternalServices.SupabaseJWTSecret) < minJWTLength {
		return fmt.Errorf("supabase JWT secret must be at least %d characters long", minJWTLength)
	}
	if len(cfg.Public.SessionSecret) < minJWTLength {
		return fmt.Errorf("respondent session secret must be at least %d characters long", minJWTLength)
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}
	if !cfg.Redis.Enabled {
		log.Warn("Redis disabled: drafts, rate limits and events are unavailable and the audit outbox is in-memory")
	}

	if !cfg.Email.Enabled() {
		if cfg.IsProduction() {
			return fmt.Errorf("email from address and resend API key are required in production")
		}
		log.Warn("Email is not configured; confirmation and invitation emails are skipped")
	}

	if cfg.Public.StepsPerPage <= 0 {
		return fmt.Errorf("steps per page must be positive")
	}
	if cfg.Public.AutosaveDebounceMs < 0 {
		return fmt.Errorf("autosave debounce must not be negative")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}
	if cfg.WorkerPool.MaxWorkers <= 0 || cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool max workers and queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}
	if cfg.Audit.BatchSize <= 0 || cfg.Audit.MaxAttempts <= 0 || cfg.Audit.DrainIntervalMs <= 0 {
		return fmt.Errorf("audit batch size, max attempts and drain interval must be positive")
	}
	if cfg.Storage.Enabled && cfg.Storage.Bucket == "" {
		return fmt.Errorf("export bucket is required when export storage is enabled")
	}
	if cfg.Search.Remote && cfg.Database.Backend != BackendPostgres {
		log.Warn("Remote search requires the postgres backend; falling back to in-memory search")
		cfg.Search.Remote = false
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
