package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once from the environment at startup.
type Config struct {
	Port          string
	DBDriver      string // postgres or sqlite
	DBDSN         string
	DBPath        string
	AutoMigrate   bool
	JWTSecret     []byte
	LogLevel      string
	LogFormat     string // json or console
	Location      *time.Location
	EnterpriseRef string
	CityRef       string
	AdminPassword string
	MaxUploadMB   int64
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:          envOr("PORT", "8081"),
		DBDriver:      strings.ToLower(envOr("DB_DRIVER", "postgres")),
		DBDSN:         os.Getenv("DB_DSN"),
		DBPath:        envOr("DB_PATH", "egressos.db"),
		AutoMigrate:   envBool("DB_AUTO_MIGRATE", true),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		EnterpriseRef: envOr("ENTERPRISE_JSON", "enterprise.json"),
		CityRef:       envOr("CITYZEN_JSON", "cityzen.json"),
		AdminPassword: envOr("ADMIN_PASSWORD", "admin123"),
		MaxUploadMB:   5,
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	cfg.JWTSecret = []byte(secret)

	tz := envOr("TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer, got %q", v)
		}
		cfg.MaxUploadMB = n
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBDSN == "" {
			return Config{}, fmt.Errorf("DB_DSN is not set; it is required when DB_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", cfg.DBDriver)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "false", "0", "no":
		return false
	default:
		return true
	}
}
