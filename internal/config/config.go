package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens outside production when JWT_SECRET is unset.
const DevJWTSecret = "development-only-secret"

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTTTL    time.Duration

	DatabaseURL     string
	ArchiveInterval time.Duration

	StartingBalance    uint64
	MaxDurationMinutes int64

	VotesPerMinute  int
	ClaimsPerMinute int
}

// LoadDotEnv loads a .env file if present. Existing environment variables
// are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Default() *Config {
	return &Config{
		Port:               "8080",
		Env:                "development",
		RedisURL:           "localhost:6379",
		JWTTTL:             24 * time.Hour,
		ArchiveInterval:    30 * time.Second,
		StartingBalance:    10000,
		MaxDurationMinutes: 7 * 24 * 60,
		VotesPerMinute:     30,
		ClaimsPerMinute:    60,
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("APP_ENV"); raw != "" {
		cfg.Env = raw
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		cfg.RedisURL = raw
	}
	cfg.RedisPass = os.Getenv("REDIS_PASSWORD")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	hours, err := intEnv("JWT_TTL_HOURS", int(cfg.JWTTTL/time.Hour))
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL = time.Duration(hours) * time.Hour

	seconds, err := intEnv("ARCHIVE_INTERVAL_SECONDS", int(cfg.ArchiveInterval/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.ArchiveInterval = time.Duration(seconds) * time.Second

	if raw := os.Getenv("STARTING_BALANCE"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid STARTING_BALANCE %q: %w", raw, err)
		}
		cfg.StartingBalance = value
	}
	if raw := os.Getenv("MAX_DURATION_MINUTES"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_DURATION_MINUTES %q: %w", raw, err)
		}
		cfg.MaxDurationMinutes = value
	}
	if cfg.VotesPerMinute, err = intEnv("RATE_LIMIT_VOTES_PER_MINUTE", cfg.VotesPerMinute); err != nil {
		return nil, err
	}
	if cfg.ClaimsPerMinute, err = intEnv("RATE_LIMIT_CLAIMS_PER_MINUTE", cfg.ClaimsPerMinute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	if c.ArchiveInterval <= 0 {
		return fmt.Errorf("ARCHIVE_INTERVAL_SECONDS must be positive")
	}
	if c.MaxDurationMinutes < 0 {
		return fmt.Errorf("MAX_DURATION_MINUTES must not be negative")
	}
	if c.Env == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}
