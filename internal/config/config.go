package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "BOOKS"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "books.db"
	defaultLogLevel        = "info"
	defaultTokenTTLMinutes = 120
	defaultSlideGraceSecs  = 30
	defaultAllowedOrigins  = "*"
	minSigningSecretLength = 16
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	LogFile        string
	SigningSecret  string
	TokenTTL       time.Duration
	AdminEmail     string
	AdminPassword  string
	AllowedOrigins []string
	SlideGrace     time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.file", "")
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("slides.grace_seconds", defaultSlideGraceSecs)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		LogFile:        strings.TrimSpace(configViper.GetString("log.file")),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		AdminEmail:     strings.TrimSpace(configViper.GetString("admin.email")),
		AdminPassword:  configViper.GetString("admin.password"),
		AllowedOrigins: splitOrigins(configViper.GetString("cors.allowed_origins")),
		SlideGrace:     time.Duration(configViper.GetInt("slides.grace_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if len(strings.TrimSpace(c.SigningSecret)) < minSigningSecretLength {
		return fmt.Errorf("auth.signing_secret must be at least %d characters", minSigningSecretLength)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.SlideGrace < 0 {
		return fmt.Errorf("slides.grace_seconds must not be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("admin.email and admin.password must be set together")
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{defaultAllowedOrigins}
	}
	return origins
}
