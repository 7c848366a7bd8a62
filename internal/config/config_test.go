package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/mindline")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if !cfg.IsDev() {
		t.Error("expected IsDev() to be true by default")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestValidate_ProductionRequiresAuth(t *testing.T) {
	cfg := &Config{Env: "production", DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: production without auth configuration")
	}

	cfg.AuthSigningKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with signing key set: %v", err)
	}

	cfg.AuthSigningKey = ""
	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with issuer set: %v", err)
	}
}

func TestValidate_WebhookSecretRequiredInProduction(t *testing.T) {
	cfg := &Config{
		Env:                  "production",
		DatabaseURL:          "postgres://x",
		AuthIssuer:           "https://auth.example.com",
		EscalationWebhookURL: "https://oncall.example.com/hook",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: webhook URL without secret in production")
	}

	cfg.EscalationWebhookSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DevelopmentAllowsNoAuth(t *testing.T) {
	cfg := &Config{Env: "development", DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error in development mode: %v", err)
	}
}
