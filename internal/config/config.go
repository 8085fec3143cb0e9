// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "dreamly-dev-secret-change-me"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string        `mapstructure:"APP_ENV"`
	Port           string        `mapstructure:"PORT"`
	DBPath         string        `mapstructure:"DB_PATH"`
	DBSlowQueryMS  int           `mapstructure:"DB_SLOW_QUERY_MS"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTIssuer      string        `mapstructure:"JWT_ISSUER"`
	JWTAudience    string        `mapstructure:"JWT_AUDIENCE"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	CookieSecure   bool          `mapstructure:"COOKIE_SECURE"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string        `mapstructure:"FEATURE_FLAGS"`
	BodyLimitMB    int           `mapstructure:"BODY_LIMIT_MB"`

	ImageAPIURL  string        `mapstructure:"IMAGE_API_URL"`
	ImageAPIKey  string        `mapstructure:"IMAGE_API_KEY"`
	ImageModel   string        `mapstructure:"IMAGE_MODEL"`
	ImageTimeout time.Duration `mapstructure:"IMAGE_TIMEOUT"`

	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
	OTelExporter   string `mapstructure:"OTEL_EXPORTER"`
	OTelEndpoint   string `mapstructure:"OTEL_ENDPOINT"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config.%s.yml: %w", env, err)
			}
		} else {
			slog.Info("loaded profile configuration", slog.String("file", "config."+env+".yml"))
		}
	}

	SetDefaults(viper.GetViper())

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.Env = strings.ToLower(strings.TrimSpace(config.Env))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers development defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("DB_PATH", "dreamly.db")
	v.SetDefault("DB_SLOW_QUERY_MS", 200)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "dreamly-api")
	v.SetDefault("JWT_AUDIENCE", "dreamly-client")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000")
	v.SetDefault("FEATURE_FLAGS", "image_preview=on,thumbnails=on")
	v.SetDefault("BODY_LIMIT_MB", 16)
	v.SetDefault("IMAGE_API_URL", "https://api.together.xyz/v1/images/generations")
	v.SetDefault("IMAGE_API_KEY", "")
	v.SetDefault("IMAGE_MODEL", "black-forest-labs/FLUX.1-schnell-Free")
	v.SetDefault("IMAGE_TIMEOUT", "120s")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER", "stdout")
	v.SetDefault("OTEL_ENDPOINT", "localhost:4318")
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.ImageAPIKey == "" {
			return errors.New("IMAGE_API_KEY is required in production")
		}
		if !c.CookieSecure {
			slog.Warn("COOKIE_SECURE is off in production; session cookies will be sent over plain HTTP")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters; use a stronger secret for production")
	}

	return nil
}
