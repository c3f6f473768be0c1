package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "REDIS_DB", "JWT_TTL_HOURS", "STARTING_BALANCE", "MAX_DURATION_MINUTES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.StartingBalance != 10000 {
		t.Errorf("expected default starting balance 10000, got %d", cfg.StartingBalance)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("expected default jwt ttl 24h, got %s", cfg.JWTTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("JWT_TTL_HOURS", "1")
	t.Setenv("STARTING_BALANCE", "18446744073709551615")
	t.Setenv("ARCHIVE_INTERVAL_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.RedisDB != 2 {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.JWTTTL != time.Hour || cfg.ArchiveInterval != 5*time.Second {
		t.Errorf("unexpected durations ttl=%s archive=%s", cfg.JWTTTL, cfg.ArchiveInterval)
	}
	if cfg.StartingBalance != ^uint64(0) {
		t.Errorf("expected max uint64 starting balance, got %d", cfg.StartingBalance)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed REDIS_DB")
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing in production")
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=7000\nBALANCE_GAME_TEST_ONLY=yes\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PORT", "6000")
	t.Cleanup(func() { os.Unsetenv("BALANCE_GAME_TEST_ONLY") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if os.Getenv("PORT") != "6000" {
		t.Errorf("existing PORT should win, got %s", os.Getenv("PORT"))
	}
	if os.Getenv("BALANCE_GAME_TEST_ONLY") != "yes" {
		t.Error("expected new variable from .env")
	}
}

func TestDevelopmentSecretFallback(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret != DevJWTSecret {
		t.Errorf("expected development secret, got %q", cfg.JWTSecret)
	}
}
