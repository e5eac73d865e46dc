package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" envDefault:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" envDefault:"300"`
}

// MinIOConfig holds object storage settings for MinIO.
// PublicURL, when set, is the base used to build object URLs stored on files
// (e.g. a CDN in front of the bucket). Otherwise the endpoint is used.
// The bucket is created without a read policy, so stored URLs only resolve
// through a public-read front; clients otherwise download through the API.
type MinIOConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
}

// RedisConfig holds the connection settings for the account/session store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// SessionConfig controls the session cookie and its lifetime.
type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"filevault-session"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SignInPath string        `env:"SIGN_IN_PATH" envDefault:"/sign-in"`
}

// OTPConfig controls one-time password issuance.
// MaxPerWindow of zero disables request throttling.
type OTPConfig struct {
	Length       int           `env:"OTP_LENGTH" envDefault:"6"`
	TTL          time.Duration `env:"OTP_TTL" envDefault:"15m"`
	MaxAttempts  int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	MaxPerWindow int           `env:"OTP_MAX_PER_WINDOW" envDefault:"5"`
	Window       time.Duration `env:"OTP_WINDOW" envDefault:"10m"`
}

// MailConfig holds SMTP settings. An empty SMTPHost switches to the log mailer.
type MailConfig struct {
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"no-reply@filevault.local"`
}

// FilesConfig holds upload and quota limits.
type FilesConfig struct {
	MaxUploadBytes       int64  `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`
	TotalCapacityBytes   int64  `env:"TOTAL_CAPACITY_BYTES" envDefault:"2147483648"`
	AvatarPlaceholderURL string `env:"AVATAR_PLACEHOLDER_URL" envDefault:"https://img.freepik.com/free-psd/3d-illustration-person-with-sunglasses_23-2149436188.jpg"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string `env:"APP_HOST"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Database DatabaseConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Session  SessionConfig
	OTP      OTPConfig
	Mail     MailConfig
	Files    FilesConfig
}

// DocsHost is the host advertised in the Swagger document. APP_HOST wins
// when set (e.g. behind a proxy); otherwise the request's Host is used.
func (c *AppConfig) DocsHost(requestHost string) string {
	if c.AppHost != "" {
		return c.AppHost
	}
	return requestHost
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.OTP.Length < 4 || cfg.OTP.Length > 10 {
		return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", cfg.OTP.Length)
	}
	if cfg.Files.TotalCapacityBytes <= 0 {
		return nil, fmt.Errorf("TOTAL_CAPACITY_BYTES must be positive")
	}
	return &cfg, nil
}
