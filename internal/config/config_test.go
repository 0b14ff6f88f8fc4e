package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "0123456789abcdef")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.SlideGrace != 30*time.Second {
		t.Fatalf("expected 30s slide grace, got %s", cfg.SlideGrace)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h token ttl, got %s", cfg.TokenTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name     string
		settings map[string]any
	}{
		{
			name:     "missing-secret",
			settings: map[string]any{},
		},
		{
			name:     "short-secret",
			settings: map[string]any{"auth.signing_secret": "short"},
		},
		{
			name: "admin-email-without-password",
			settings: map[string]any{
				"auth.signing_secret": "0123456789abcdef",
				"admin.email":         "admin@example.com",
			},
		},
		{
			name: "negative-grace",
			settings: map[string]any{
				"auth.signing_secret":  "0123456789abcdef",
				"slides.grace_seconds": -1,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range testCase.settings {
				configViper.Set(key, value)
			}
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSplitOrigins(t *testing.T) {
	origins := splitOrigins(" https://a.example , ,https://b.example")
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", origins)
	}
}
