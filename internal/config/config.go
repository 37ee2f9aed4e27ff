// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	Port           string
	APIPrefix      string
	UseMemoryStore bool
	LogLevel       string

	Database DatabaseConfig
	Auth     AuthConfig
	Media    MediaConfig
	Mail     MailConfig
	Twilio   TwilioConfig
	Outbox   OutboxConfig
	Debug    DebugConfig

	// PublicBaseURL is the externally reachable origin used in emailed links.
	PublicBaseURL   string
	AdminLinkSecret string
}

type DatabaseConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	Name                   string
	SSLMode                string
	InstanceConnectionName string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

type MediaConfig struct {
	Driver    string // local or minio
	UploadDir string
	MaxImages int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type MailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	OpsEmail string
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

type OutboxConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	BatchSize    int
}

type DebugConfig struct {
	Endpoints   bool
	LogCapacity int
}

// Configured reports whether SMS credentials are present.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

// Configured reports whether an SMTP relay is set.
func (m MailConfig) Configured() bool {
	return m.SMTPHost != ""
}

// IsProduction reports whether the service runs on Cloud Run.
func (c *Config) IsProduction() bool {
	return c.Database.InstanceConnectionName != ""
}

// LoadDotEnv loads .env files for local development. Missing files are not
// an error; the returned slice names the files that were loaded.
func LoadDotEnv() []string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return nil
	}
	var loaded []string
	for _, path := range []string{".env", "environments/.env.development"} {
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
			break
		}
	}
	return loaded
}

// Load reads the configuration from the environment. Malformed numeric and
// duration values fall back to defaults; their keys are returned as warnings.
func Load() (*Config, []string) {
	var warnings []string
	intVal := func(key string, def int) int {
		v, ok := lookup(key)
		if !ok {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			warnings = append(warnings, key)
			return def
		}
		return n
	}
	durVal := func(key string, def time.Duration) time.Duration {
		v, ok := lookup(key)
		if !ok {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			warnings = append(warnings, key)
			return def
		}
		return d
	}

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Port:           getEnv("PORT", "8080"),
		APIPrefix:      strings.TrimRight(getEnv("API_PREFIX", "/api/scrapify"), "/"),
		UseMemoryStore: boolVal("USE_MEMORY_STORE"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:                   getEnv("DB_HOST", "localhost"),
			Port:                   intVal("DB_PORT", 5432),
			User:                   getEnv("DB_USER", "postgres"),
			Password:               os.Getenv("DB_PASS"),
			Name:                   getEnv("DB_NAME", "scrapify"),
			SSLMode:                getEnv("DB_SSLMODE", "disable"),
			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  durVal("JWT_TTL", 30*24*time.Hour),
			OTPTTL:    durVal("OTP_TTL", 10*time.Minute),
		},
		Media: MediaConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxImages:      intVal("MAX_UPLOAD_IMAGES", 10),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			MinioBucket:    getEnv("MINIO_BUCKET", "scrapify-uploads"),
			MinioUseSSL:    boolVal("MINIO_USE_SSL"),
		},
		Mail: MailConfig{
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: intVal("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("MAIL_FROM", os.Getenv("SMTP_USER")),
			OpsEmail: getEnv("OPS_EMAIL", "operations@scrapify.in"),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
		Outbox: OutboxConfig{
			PollInterval: durVal("OUTBOX_POLL_INTERVAL", 5*time.Second),
			MaxAttempts:  intVal("OUTBOX_MAX_ATTEMPTS", 5),
			BatchSize:    intVal("OUTBOX_BATCH_SIZE", 20),
		},
		Debug: DebugConfig{
			Endpoints:   boolVal("DEBUG_ENDPOINTS"),
			LogCapacity: intVal("DEBUG_LOG_CAPACITY", 100),
		},
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AdminLinkSecret: os.Getenv("ADMIN_LINK_SECRET"),
	}

	if cfg.Media.Driver != "local" && cfg.Media.Driver != "minio" {
		warnings = append(warnings, "STORAGE_DRIVER")
		cfg.Media.Driver = "local"
	}

	return cfg, warnings
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func getEnv(key, defaultValue string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return defaultValue
}

func boolVal(key string) bool {
	v, _ := lookup(key)
	b, _ := strconv.ParseBool(v)
	return b
}
