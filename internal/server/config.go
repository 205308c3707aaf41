package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is read once at startup.
type Config struct {
	HTTPAddr         string
	StoreBackend     string
	DatabaseURL      string
	AuthzMode        authz.Mode
	ActorTokenSecret []byte
	RateLimit        float64
	RateBurst        int
	LogLevel         slog.Level
	AllowlistPath    string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		StoreBackend:     strings.ToLower(envOr("STORE_BACKEND", StoreMemory)),
		ActorTokenSecret: []byte(os.Getenv("ACTOR_TOKEN_SECRET")),
		AllowlistPath:    os.Getenv("ALLOWLIST_PATH"),
	}
	switch cfg.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		cfg.DatabaseURL = DatabaseDSN()
		if _, err := pgx.ParseConfig(cfg.DatabaseURL); err != nil {
			return Config{}, fmt.Errorf("server: database dsn: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("server: STORE_BACKEND %q (want memory|postgres)", cfg.StoreBackend)
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.AuthzMode = mode

	limit, err := strconv.ParseFloat(envOr("API_RATE_LIMIT", "20"), 64)
	if err != nil || limit < 0 {
		return Config{}, fmt.Errorf("server: API_RATE_LIMIT must be a non-negative number")
	}
	cfg.RateLimit = limit
	burst, err := strconv.Atoi(envOr("API_RATE_BURST", "40"))
	if err != nil || burst < 1 {
		return Config{}, fmt.Errorf("server: API_RATE_BURST must be a positive integer")
	}
	cfg.RateBurst = burst

	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("server: LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// DatabaseDSN returns DATABASE_URL when set, otherwise a postgres URL built from the DB_* variables.
func DatabaseDSN() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envOr("DB_USER", "app"), envOr("DB_PASSWORD", "app")),
		Host:     net.JoinHostPort(envOr("DB_HOST", "127.0.0.1"), envOr("DB_PORT", "5432")),
		Path:     "/" + envOr("DB_NAME", "paralegal_tasks"),
		RawQuery: url.Values{"sslmode": {envOr("DB_SSLMODE", "disable")}}.Encode(),
	}
	return u.String()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
