package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "DB_DRIVER", "BLOB_DRIVER", "CONTENT_TIMEOUT", "AUTH_HMAC_SECRET", "REDIS_ADDR", "NOTIFY_CONCURRENCY", "ROLE_CLAIM_FALLBACK"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "fs", cfg.BlobDriver)
	assert.Equal(t, 15*time.Second, cfg.ContentTimeout)
	assert.Equal(t, 10*time.Minute, cfg.EnvelopeTTL)
	assert.Equal(t, 4, cfg.NotifyConcurrency)
	assert.True(t, cfg.RoleClaimFallback)
	assert.NotEmpty(t, cfg.AuthHMACSecret)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.SMTPEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Online(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("ROLE_CLAIM_FALLBACK", "")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CONTENT_TIMEOUT", "3s")
	t.Setenv("BLOB_DRIVER", "gateway")

	cfg := FromEnv()
	assert.False(t, cfg.RoleClaimFallback)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.ContentTimeout)
	// online mode has no default signing secret
	assert.Error(t, cfg.Validate())

	t.Setenv("AUTH_HMAC_SECRET", "s3cret")
	assert.NoError(t, FromEnv().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("BLOB_DRIVER", "")
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.DBDriver = "oracle" }},
		{"blob driver", func(c *Config) { c.BlobDriver = "s3" }},
		{"fs without path", func(c *Config) { c.BlobBasePath = "" }},
		{"gateway url", func(c *Config) { c.GatewayURL = "not a url" }},
		{"timeout", func(c *Config) { c.ContentTimeout = 0 }},
		{"concurrency", func(c *Config) { c.NotifyConcurrency = 0 }},
		{"mode", func(c *Config) { c.Mode = "hybrid" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := FromEnv()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_USER", "")
	t.Setenv("SMTP_PASSWORD", "")
	os.Unsetenv("SMTP_HOST")
	os.Unsetenv("SMTP_USER")
	os.Unsetenv("SMTP_PASSWORD")

	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte("SMTP_HOST=smtp.example.com\nSMTP_USER=u\nSMTP_PASSWORD=p\n"), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
