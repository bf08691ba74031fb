package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "takenotes/pkg/platform/strings"
)

// DefaultJWTSigningKey is used when JWT_SIGNING_KEY is unset. It is only
// acceptable for local development; main logs a warning when it is in effect.
const DefaultJWTSigningKey = "dev-secret-key-change-in-production"

// Config groups every runtime setting of the auth gateway.
type Config struct {
	Server   Server
	Auth     AuthConfig
	Google   GoogleConfig
	Notify   NotifyConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// AuthConfig holds credential and one-time code settings.
type AuthConfig struct {
	JWTSigningKey    string
	JWTIssuer        string
	TokenTTL         time.Duration
	OTPTTL           time.Duration
	OTPSweepInterval time.Duration
	// OTPResendInterval is the minimum gap between two codes issued to one
	// address. Zero disables the check.
	OTPResendInterval time.Duration
}

// UsingDefaultSigningKey reports whether the development key is in effect.
func (a AuthConfig) UsingDefaultSigningKey() bool {
	return a.JWTSigningKey == DefaultJWTSigningKey
}

// GoogleConfig configures federated sign-in.
type GoogleConfig struct {
	ClientID      string
	VerifyTimeout time.Duration
}

// NotifyConfig configures outbound email delivery. An empty SMTPHost selects
// the logging sender.
type NotifyConfig struct {
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	From             string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DatabaseConfig selects the Postgres user store. An empty URL keeps users in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig selects the audit sink. Without brokers events are logged.
type AuditConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("TAKENOTES_ADDR", ":8080"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  envDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey:     envString("JWT_SIGNING_KEY", DefaultJWTSigningKey),
			JWTIssuer:         envString("JWT_ISSUER", "takenotes"),
			TokenTTL:          envDuration("TOKEN_TTL", 7*24*time.Hour),
			OTPTTL:            envDuration("OTP_TTL", 10*time.Minute),
			OTPSweepInterval:  envDuration("OTP_SWEEP_INTERVAL", time.Minute),
			OTPResendInterval: envDuration("OTP_RESEND_INTERVAL", 0),
		},
		Google: GoogleConfig{
			ClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
			VerifyTimeout: envDuration("GOOGLE_VERIFY_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			SMTPHost:         os.Getenv("SMTP_HOST"),
			SMTPPort:         envInt("SMTP_PORT", 587),
			SMTPUsername:     os.Getenv("SMTP_USERNAME"),
			SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
			From:             envString("SMTP_FROM", "no-reply@takenotes.local"),
			Timeout:          envDuration("NOTIFY_TIMEOUT", 10*time.Second),
			BreakerThreshold: envInt("NOTIFY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("NOTIFY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			KafkaBrokers: envList("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   envString("AUDIT_KAFKA_TOPIC", "takenotes.auth.audit"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	return platformstrings.SplitList(os.Getenv(key), ",")
}
