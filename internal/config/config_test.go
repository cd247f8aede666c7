package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_ISSUER", "authapi-test")
	t.Setenv("JWT_AUDIENCE", "authapi-clients")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Env != "dev" || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: env=%q port=%d", cfg.Env, cfg.Port)
	}

	if cfg.JWT.ExpiryMinutes != 60 {
		t.Fatalf("expiry default: got %d", cfg.JWT.ExpiryMinutes)
	}

	if !strings.HasPrefix(cfg.DBURL, "postgres://") {
		t.Fatalf("db url not assembled: %q", cfg.DBURL)
	}
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	// only the secret is present
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "")

	_, err := Load()

	if err == nil {
		t.Fatalf("expected an error for missing configuration")
	}

	for _, key := range []string{"JWT_ISSUER", "JWT_AUDIENCE"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error should name %s: %v", key, err)
		}
	}
}

func TestLoadRejectsNonPositiveExpiry(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_EXPIRY_MINUTES", "-5")

	_, err := Load()

	if err == nil {
		t.Fatalf("expected an error for non-positive expiry")
	}
}

func TestDatabaseURLOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app?sslmode=require")

	cfg, err := Load()

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DBURL != "postgres://u:p@db:5432/app?sslmode=require" {
		t.Fatalf("DATABASE_URL not honored: %q", cfg.DBURL)
	}
}
