package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// JWTConfig holds the token issuer settings. Every field except
// ExpiryMinutes is required at startup.
type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	ExpiryMinutes int
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

type Config struct {
	Env  string
	Port int

	DBURL string

	JWT JWTConfig

	// optional redis for the auth throttle; empty addr means in-memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// optional admin seed
	AdminEmail    string
	AdminPassword string
	AdminName     string

	OTLPEndpoint   string
	AllowedOrigins []string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads configuration from the environment. Missing required keys are
// a startup error, never a runtime failure path.
func Load() (Config, error) {
	cfg := Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DBURL: buildDBURL(),

		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			Issuer:        os.Getenv("JWT_ISSUER"),
			Audience:      os.Getenv("JWT_AUDIENCE"),
			ExpiryMinutes: getEnvInt("JWT_EXPIRY_MINUTES", 60),
		},

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}

	missing := make([]string, 0, 4)

	if cfg.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if cfg.JWT.Issuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}

	if cfg.JWT.Audience == "" {
		missing = append(missing, "JWT_AUDIENCE")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if cfg.JWT.ExpiryMinutes <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRY_MINUTES must be positive, got %d", cfg.JWT.ExpiryMinutes)
	}

	return cfg, nil
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authapi")
	pass := getEnv("DB_PASSWORD", "authapi")
	name := getEnv("DB_NAME", "authapi")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}

	return fallback
}
