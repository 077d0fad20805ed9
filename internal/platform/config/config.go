package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	liststr "hatch/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel slog.Level

	// AdminKey authenticates operator endpoints via the Admin-Key header.
	AdminKey string

	// BaseURL is this service's public origin, used in verification links.
	BaseURL string
	// FrontendURL is the web app origin, used in webhook links and redirects.
	FrontendURL string

	// Mods lists the usernames allowed through the moderator guard.
	Mods []string

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string

	AuthTokenTTL         time.Duration
	EmailTokenTTL        time.Duration
	AccountDeletionGrace time.Duration

	// BanFailClosed rejects requests when the ban list cannot be read.
	BanFailClosed bool

	Database DatabaseConfig
	Redis    RedisConfig
	Webhooks WebhookConfig
	Email    EmailConfig
	Objects  ObjectsConfig
}

type DatabaseConfig struct {
	// URL is a postgres DSN. Empty selects the in-memory credential store.
	URL string
}

type RedisConfig struct {
	// URL is a redis:// URL. Empty selects the in-process broker.
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WebhookConfig struct {
	Logging string
	Reports string
	Ops     string
}

type EmailConfig struct {
	PostalURL   string
	PostalKey   string
	ResendKey   string
	From        string
	StatusDelay time.Duration
}

type ObjectsConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Buckets   []string
}

// Enabled reports whether object purging is configured.
func (c ObjectsConfig) Enabled() bool {
	return c.Endpoint != "" && len(c.Buckets) > 0
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := Server{
		Addr:                 getenv("ADDR", ":8080"),
		AdminKey:             os.Getenv("ADMIN_KEY"),
		BaseURL:              strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:          strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:3000"), "/"),
		Mods:                 liststr.SplitList(os.Getenv("MODS"), ","),
		CORSOrigins:          liststr.SplitList(getenv("CORS_ORIGINS", "*"), ","),
		AuthTokenTTL:         durationEnv("AUTH_TOKEN_TTL", 1000*time.Second, &errs),
		EmailTokenTTL:        durationEnv("EMAIL_TOKEN_TTL", 30*time.Minute, &errs),
		AccountDeletionGrace: durationEnv("ACCOUNT_DELETION_GRACE", 24*time.Hour, &errs),
		BanFailClosed:        boolEnv("BAN_FAIL_CLOSED", false, &errs),
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Webhooks: WebhookConfig{
			Logging: os.Getenv("LOGGING_WEBHOOK"),
			Reports: os.Getenv("REPORT_WEBHOOK"),
			Ops:     os.Getenv("OPS_WEBHOOK"),
		},
		Email: EmailConfig{
			PostalURL:   strings.TrimRight(os.Getenv("POSTAL_URL"), "/"),
			PostalKey:   os.Getenv("POSTAL_KEY"),
			ResendKey:   os.Getenv("RESEND_KEY"),
			From:        getenv("EMAIL_FROM", "Hatch <noreply@hatch.lol>"),
			StatusDelay: durationEnv("EMAIL_STATUS_DELAY", 10*time.Second, &errs),
		},
		Objects: ObjectsConfig{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getenv("S3_REGION", "auto"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Buckets:   liststr.SplitList(os.Getenv("S3_BUCKETS"), ","),
		},
	}
	if cfg.Webhooks.Ops == "" {
		cfg.Webhooks.Ops = cfg.Webhooks.Logging
	}

	level, err := parseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if cfg.AdminKey == "" {
		errs = append(errs, errors.New("ADMIN_KEY is required"))
	}
	if cfg.Email.PostalURL != "" && cfg.Email.PostalKey == "" {
		errs = append(errs, errors.New("POSTAL_KEY is required when POSTAL_URL is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv accepts Go durations ("90s") or bare seconds ("90").
func durationEnv(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			*errs = append(*errs, fmt.Errorf("%s: duration must be positive, got %q", key, v))
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func boolEnv(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
