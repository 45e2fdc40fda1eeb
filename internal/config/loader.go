package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"petanco-intake-api/internal/security"
)

// EnvPrefix namespaces environment overrides, e.g. PETANCO_INTAKE_SECRET_KEY.
const EnvPrefix = "PETANCO"

// LoadConfig reads configFile (or ./configs/config.yaml, ./config.yaml when
// empty), then .env and PETANCO_* environment variables, which take
// precedence. The result is validated and the secret is decrypted.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.resolveSecret(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.enable_tls", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("intake.enabled", true)
	v.SetDefault("intake.schema", "v2")
	v.SetDefault("intake.secret_key", "")
	v.SetDefault("intake.secret_key_encrypted", "")
	v.SetDefault("intake.app_key", "")
	v.SetDefault("intake.rate_limit", 0)
	v.SetDefault("intake.rate_limit_scope", "global")
	v.SetDefault("intake.locale", "ja")
	v.SetDefault("intake.timezone", "Asia/Tokyo")
	// Schema-dependent; left unset so applyDefaults can tell.
	_ = v.BindEnv("intake.hardened")
	_ = v.BindEnv("intake.callout")

	v.SetDefault("cors.mode", "")
	v.SetDefault("cors.allowed_origin", "")

	v.SetDefault("webhooks.success_url", "")
	v.SetDefault("webhooks.failure_url", "")
	v.SetDefault("webhooks.timeout", "5s")

	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.dsn", "./petanco_intake.db")
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_database", "petanco")
	v.SetDefault("store.mongo_collection", "inbound_messages")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "")

	v.SetDefault("sns.enabled", false)
	v.SetDefault("sns.region", "ap-northeast-1")
	v.SetDefault("sns.topic_arn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "petanco-intake-api")
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("security.max_request_body_size", 1<<20)
}

// resolveSecret replaces SecretKey with the decrypted envelope when one is
// configured.
func (c *Config) resolveSecret() error {
	if c.Intake.SecretKeyEncrypted == "" {
		return nil
	}
	box, err := security.NewSecretBox(c.Intake.AppKey)
	if err != nil {
		return fmt.Errorf("intake.app_key: %w", err)
	}
	secret, err := box.Open(c.Intake.SecretKeyEncrypted)
	if err != nil {
		return fmt.Errorf("intake.secret_key_encrypted: %w", err)
	}
	c.Intake.SecretKey = secret
	return nil
}
