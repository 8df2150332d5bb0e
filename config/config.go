package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the identity core server.
// Values come from an optional YAML file, environment variables, and the
// defaults below, in increasing order of precedence for env vars.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Primary hosted identity provider.
	PrimaryBaseURL string `mapstructure:"PRIMARY_BASE_URL"`
	PrimaryAPIKey  string `mapstructure:"PRIMARY_API_KEY"`
	TokenTemplate  string `mapstructure:"TOKEN_TEMPLATE"`

	// OperatorEmail is the single email resolved to the admin role.
	OperatorEmail string `mapstructure:"OPERATOR_EMAIL"`

	// ProviderTimeout bounds every outbound provider and store call.
	ProviderTimeoutSec int `mapstructure:"PROVIDER_TIMEOUT_SEC"`
	// SessionMaxTTLMin caps a bridged session even when the provider token
	// declares a later expiry.
	SessionMaxTTLMin int `mapstructure:"SESSION_MAX_TTL_MIN"`

	// Redirect targets used by the access control guard and feature gate.
	SignInURL  string `mapstructure:"SIGN_IN_URL"`
	LandingURL string `mapstructure:"LANDING_URL"`
	UpgradeURL string `mapstructure:"UPGRADE_URL"`
}

// ProviderTimeout returns the configured timeout as a duration.
func (c *ServerConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSec) * time.Second
}

// SessionMaxTTL returns the configured session cap as a duration.
func (c *ServerConfig) SessionMaxTTL() time.Duration {
	return time.Duration(c.SessionMaxTTLMin) * time.Minute
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/identity-core/")
	v.AddConfigPath("$HOME/.identity-core")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/identity_core_dev")
	v.SetDefault("MONGO_DB_NAME", "identity_core_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "idcore")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("PRIMARY_BASE_URL", "https://api.primary-idp.example.com")
	v.SetDefault("PRIMARY_API_KEY", "")
	v.SetDefault("TOKEN_TEMPLATE", "backing-store")
	v.SetDefault("OPERATOR_EMAIL", "")
	v.SetDefault("PROVIDER_TIMEOUT_SEC", 10)
	v.SetDefault("SESSION_MAX_TTL_MIN", 60)
	v.SetDefault("SIGN_IN_URL", "/sign-in")
	v.SetDefault("LANDING_URL", "/dashboard")
	v.SetDefault("UPGRADE_URL", "/pricing")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
