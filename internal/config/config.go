package config

import (
	"fmt"
	"net/url"
	"time"

	// Embedded zone database so Asia/Tokyo resolves on minimal images.
	_ "time/tzdata"

	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/middleware"
	"petanco-intake-api/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Webhooks WebhookConfig  `mapstructure:"webhooks"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SNS      SNSConfig      `mapstructure:"sns"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IntakeConfig holds the settings of the submission endpoint.
type IntakeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Schema  string `mapstructure:"schema"`
	// Hardened and Callout default from the schema when unset.
	Hardened *bool `mapstructure:"hardened"`
	Callout  *bool `mapstructure:"callout"`
	// SecretKey is the shared secret. SecretKeyEncrypted, when set, is opened
	// with AppKey and replaces it.
	SecretKey          string `mapstructure:"secret_key"`
	SecretKeyEncrypted string `mapstructure:"secret_key_encrypted"`
	AppKey             string `mapstructure:"app_key"`
	// RateLimit is requests per hour. Zero selects the schema default.
	RateLimit      int    `mapstructure:"rate_limit"`
	RateLimitScope string `mapstructure:"rate_limit_scope"`
	Locale         string `mapstructure:"locale"`
	Timezone       string `mapstructure:"timezone"`
}

// CORSConfig selects the origin policy of the submit route.
type CORSConfig struct {
	// Mode is "permissive" or "strict". Empty selects the schema default.
	Mode          string `mapstructure:"mode"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// WebhookConfig holds optional outcome receivers.
type WebhookConfig struct {
	SuccessURL string        `mapstructure:"success_url"`
	FailureURL string        `mapstructure:"failure_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the message store backend.
type StoreConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

// RedisConfig holds the rate-limit counter store. An empty address keeps the
// counter in process.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SNSConfig enables publishing outcomes to an SNS topic.
type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `mapstructure:"max_request_body_size"`
}

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Schema-dependent defaults.
const (
	DefaultRateLimitV1   = 100
	DefaultRateLimitV2   = 300
	DefaultAllowedOrigin = "https://petanco.io"
)

// applyDefaults fills values that depend on the selected schema.
func applyDefaults(cfg *Config) {
	if s, err := validation.ParseSchema(cfg.Intake.Schema); err == nil {
		cfg.Intake.Schema = string(s)
	}
	v2 := cfg.Intake.Schema == string(validation.SchemaV2)

	if cfg.Intake.RateLimit == 0 {
		cfg.Intake.RateLimit = DefaultRateLimitV1
		if v2 {
			cfg.Intake.RateLimit = DefaultRateLimitV2
		}
	}
	if cfg.Intake.Hardened == nil {
		hardened := v2
		cfg.Intake.Hardened = &hardened
	}
	if cfg.Intake.Callout == nil {
		callout := true
		cfg.Intake.Callout = &callout
	}
	if cfg.CORS.Mode == "" {
		cfg.CORS.Mode = middleware.CORSPermissive
		if v2 {
			cfg.CORS.Mode = middleware.CORSStrict
		}
	}
	if cfg.CORS.AllowedOrigin == "" {
		cfg.CORS.AllowedOrigin = DefaultAllowedOrigin
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file are required when TLS is enabled")
	}

	if _, err := validation.ParseSchema(c.Intake.Schema); err != nil {
		return fmt.Errorf("intake.schema: %w", err)
	}
	if c.Intake.RateLimit <= 0 {
		return fmt.Errorf("intake.rate_limit must be positive")
	}
	if _, err := middleware.ParseScope(c.Intake.RateLimitScope); err != nil {
		return fmt.Errorf("intake.rate_limit_scope: %w", err)
	}
	if !messages.Supported(c.Intake.Locale) {
		return fmt.Errorf("intake.locale %q is not supported", c.Intake.Locale)
	}
	if _, err := time.LoadLocation(c.Intake.Timezone); err != nil {
		return fmt.Errorf("intake.timezone: %w", err)
	}
	if c.Intake.SecretKeyEncrypted != "" && c.Intake.AppKey == "" {
		return fmt.Errorf("intake.app_key is required to decrypt intake.secret_key_encrypted")
	}

	switch c.CORS.Mode {
	case middleware.CORSPermissive:
	case middleware.CORSStrict:
		if c.CORS.AllowedOrigin == "" {
			return fmt.Errorf("cors.allowed_origin is required in strict mode")
		}
	default:
		return fmt.Errorf("unknown cors.mode %q", c.CORS.Mode)
	}

	if err := validateWebhookURL("webhooks.success_url", c.Webhooks.SuccessURL); err != nil {
		return err
	}
	if err := validateWebhookURL("webhooks.failure_url", c.Webhooks.FailureURL); err != nil {
		return err
	}
	if c.Webhooks.Timeout <= 0 {
		return fmt.Errorf("webhooks.timeout must be positive")
	}

	switch c.Store.Driver {
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store.mongo_uri is required for driver %q", c.Store.Driver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.SNS.Enabled && (c.SNS.TopicARN == "" || c.SNS.Region == "") {
		return fmt.Errorf("sns.region and sns.topic_arn are required when SNS is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("security.max_request_body_size must be positive")
	}

	return nil
}

// validateWebhookURL accepts an empty value or an absolute http(s) URL.
func validateWebhookURL(setting, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", setting, raw)
	}
	return nil
}

// Location returns the timezone used for callout timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Intake.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsHardened reports whether the User-Agent check is active.
func (c *Config) IsHardened() bool {
	return c.Intake.Hardened != nil && *c.Intake.Hardened
}

// EmitCallout reports whether responses carry the server timestamp.
func (c *Config) EmitCallout() bool {
	return c.Intake.Callout == nil || *c.Intake.Callout
}
