package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "API_PREFIX", "JWT_TTL", "OTP_TTL", "STORAGE_DRIVER", "MAX_UPLOAD_IMAGES", "INSTANCE_CONNECTION_NAME", "SMTP_HOST"} {
		t.Setenv(key, "")
	}

	cfg, warnings := Load()
	assert.Empty(t, warnings)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api/scrapify", cfg.APIPrefix)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, "local", cfg.Media.Driver)
	assert.Equal(t, 10, cfg.Media.MaxImages)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.Mail.Configured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PREFIX", "/api/v2/")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("STORAGE_DRIVER", "MinIO")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "8")
	t.Setenv("PUBLIC_BASE_URL", "https://api.scrapify.in/")
	t.Setenv("INSTANCE_CONNECTION_NAME", "proj:region:db")

	cfg, warnings := Load()
	assert.Empty(t, warnings)
	assert.Equal(t, "/api/v2", cfg.APIPrefix)
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, "minio", cfg.Media.Driver)
	assert.Equal(t, 8, cfg.Outbox.MaxAttempts)
	assert.Equal(t, "https://api.scrapify.in", cfg.PublicBaseURL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadInvalidValuesWarn(t *testing.T) {
	t.Setenv("DB_PORT", "postgres")
	t.Setenv("JWT_TTL", "-1h")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("OUTBOX_BATCH_SIZE", "0")

	cfg, warnings := Load()
	assert.ElementsMatch(t, []string{"DB_PORT", "JWT_TTL", "STORAGE_DRIVER", "OUTBOX_BATCH_SIZE"}, warnings)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "local", cfg.Media.Driver)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
}

func TestConfigured(t *testing.T) {
	assert.True(t, TwilioConfig{AccountSID: "AC1", AuthToken: "t", PhoneNumber: "+1"}.Configured())
	assert.False(t, TwilioConfig{AccountSID: "AC1"}.Configured())
	assert.True(t, MailConfig{SMTPHost: "smtp.example.com"}.Configured())
}
