package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Admin auth
	JWTSecret      string
	JWTExpiry      time.Duration
	AdminToken     string
	AdminTokenHash string

	// Mail provider
	MailTMBaseURL  string
	MailboxTimeout time.Duration

	// Server
	Port        string
	CORSOrigins string

	Worker WorkerConfig
}

// WorkerConfig tunes the batch-creation orchestrator. Every delay is
// overridable so tests can run with millisecond values.
type WorkerConfig struct {
	MaxRetries        int           // registration attempts per unit
	RetryDelay        time.Duration // between failed attempts on one unit
	MailboxRetries    int           // mailbox acquisition attempts
	RateLimitBackoff  time.Duration // base backoff, scaled by attempt number
	RateLimitCooldown time.Duration // global cooldown after a rate-limit signal
	RegisterDelayMin  time.Duration
	RegisterDelayMax  time.Duration
	PacingSmall       time.Duration // batches of <= 2
	PacingMedium      time.Duration // batches of <= 5
	PacingLarge       time.Duration
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "account_factory"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiry:      parseDuration(getEnv("JWT_EXPIRY", "12h"), 12*time.Hour),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		MailTMBaseURL:  getEnv("MAILTM_BASE_URL", "https://api.mail.tm"),
		MailboxTimeout: parseDuration(getEnv("MAILBOX_TIMEOUT", "15s"), 15*time.Second),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		Worker: WorkerConfig{
			MaxRetries:        parseInt(getEnv("WORKER_MAX_RETRIES", "3"), 3),
			RetryDelay:        parseDuration(getEnv("WORKER_RETRY_DELAY", "3s"), 3*time.Second),
			MailboxRetries:    parseInt(getEnv("WORKER_MAILBOX_RETRIES", "3"), 3),
			RateLimitBackoff:  parseDuration(getEnv("WORKER_RATE_LIMIT_BACKOFF", "10s"), 10*time.Second),
			RateLimitCooldown: parseDuration(getEnv("WORKER_RATE_LIMIT_COOLDOWN", "60s"), 60*time.Second),
			RegisterDelayMin:  parseDuration(getEnv("WORKER_REGISTER_DELAY_MIN", "1s"), time.Second),
			RegisterDelayMax:  parseDuration(getEnv("WORKER_REGISTER_DELAY_MAX", "2s"), 2*time.Second),
			PacingSmall:       parseDuration(getEnv("WORKER_PACING_SMALL", "5s"), 5*time.Second),
			PacingMedium:      parseDuration(getEnv("WORKER_PACING_MEDIUM", "8s"), 8*time.Second),
			PacingLarge:       parseDuration(getEnv("WORKER_PACING_LARGE", "10s"), 10*time.Second),
		},
	}
}

func (c *Config) DSN() string {
	if c.DBDriver == "mysql" {
		return c.DBUser + ":" + c.DBPassword +
			"@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
			"?charset=utf8mb4&parseTime=True&loc=UTC"
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
