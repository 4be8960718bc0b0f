package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `validate:"oneof=offline online"`
	HTTPAddr string `validate:"required"`
	LogLevel string

	DBDriver string `validate:"oneof=sqlite postgres mysql"`
	DBDSN    string

	BlobDriver     string        `validate:"oneof=fs gateway"`
	BlobBasePath   string        `validate:"required_if=BlobDriver fs"`
	GatewayURL     string        `validate:"omitempty,url"`
	ContentTimeout time.Duration `validate:"gt=0"`
	RedisAddr      string        // empty disables the envelope cache
	EnvelopeTTL    time.Duration `validate:"gt=0"`

	AuthHMACSecret string `validate:"required"`
	// RoleClaimFallback trusts the token role for users missing from the
	// users table.
	RoleClaimFallback bool

	CORSOrigins []string

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFromEmail string
	SMTPFromName  string

	NotifyConcurrency int `validate:"gte=1"`
}

// Load reads a .env file when one exists and then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeOffline)))
	defOrigins := "http://localhost:3000,http://localhost:5173"
	defSecret := "offline-dev-secret"
	if mode == ModeOnline {
		defOrigins = "https://examvault.app"
		defSecret = ""
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobDriver:     envOr("BLOB_DRIVER", "fs"),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data/blobs"),
		GatewayURL:     envOr("CONTENT_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs"),
		ContentTimeout: envDuration("CONTENT_TIMEOUT", 15*time.Second),
		RedisAddr:      envOr("REDIS_ADDR", ""),
		EnvelopeTTL:    envDuration("ENVELOPE_CACHE_TTL", 10*time.Minute),

		AuthHMACSecret:    envOr("AUTH_HMAC_SECRET", defSecret),
		RoleClaimFallback: envBool("ROLE_CLAIM_FALLBACK", mode == ModeOffline),

		CORSOrigins: csvOr("CORS_ORIGINS", defOrigins),

		SMTPHost:      envOr("SMTP_HOST", ""),
		SMTPPort:      envInt("SMTP_PORT", 587),
		SMTPUser:      envOr("SMTP_USER", ""),
		SMTPPassword:  envOr("SMTP_PASSWORD", ""),
		SMTPFromEmail: envOr("SMTP_FROM_EMAIL", "noreply@examvault.app"),
		SMTPFromName:  envOr("SMTP_FROM_NAME", "ExamVault"),

		NotifyConcurrency: envInt("NOTIFY_CONCURRENCY", 4),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	return validate.Struct(c)
}

// SMTPEnabled reports whether real email delivery is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != ""
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
