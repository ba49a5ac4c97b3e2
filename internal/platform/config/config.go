// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures every setting the gateway needs. It is built once at
// startup and passed explicitly; nothing reads the environment after that.
type Config struct {
	AppTitle    string
	Description string
	Version     string

	Addr        string
	DatabaseURL string

	// APIToken guards the REST check-imei endpoint.
	APIToken string

	// External verification service.
	IMEICheckURL    string
	TokenAPISandbox string
	TokenAPILive    string
	UseLiveToken    bool
	DefaultService  int
	VerifyTimeout   time.Duration

	// LocalAPIURL is kept for operators that front the REST API elsewhere.
	LocalAPIURL string

	TelegramBotToken string

	// Retry policy per front-end. The asymmetry (REST single-shot, bot
	// retries) mirrors observed behavior but is tunable here.
	APIRetryAttempts int
	BotRetryAttempts int
	RetryBackoff     time.Duration

	// Audit pipeline; empty brokers disable Kafka and fall back to the
	// in-memory sink.
	KafkaBrokers []string
	AuditTopic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		AppTitle:    getenv("APP_TITLE", "imeigate"),
		Description: getenv("APP_DESCRIPTION", "IMEI admission gateway"),
		Version:     getenv("APP_VERSION", "dev"),

		Addr:        getenv("IMEIGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		APIToken: os.Getenv("API_TOKEN"),

		IMEICheckURL:    getenv("IMEI_CHECK_URL", "https://api.imeicheck.net/v1/checks"),
		TokenAPISandbox: os.Getenv("TOKEN_API_SANDBOX"),
		TokenAPILive:    os.Getenv("TOKEN_API_LIVE"),
		UseLiveToken:    os.Getenv("USE_LIVE_TOKEN") == "true",
		DefaultService:  getint("IMEI_SERVICE_ID", 15),
		VerifyTimeout:   getduration("VERIFY_TIMEOUT", 10*time.Second),

		LocalAPIURL: os.Getenv("LOCAL_API_URL"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		APIRetryAttempts: getint("API_RETRY_ATTEMPTS", 1),
		BotRetryAttempts: getint("BOT_RETRY_ATTEMPTS", 3),
		RetryBackoff:     getduration("RETRY_BACKOFF", 0),

		KafkaBrokers: getlist("KAFKA_BROKERS"),
		AuditTopic:   getenv("AUDIT_TOPIC", "imeigate.audit"),
	}
}

// VerifyToken returns the credential for the external service, preferring
// the live token when enabled.
func (c Config) VerifyToken() string {
	if c.UseLiveToken && c.TokenAPILive != "" {
		return c.TokenAPILive
	}
	return c.TokenAPISandbox
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getlist(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
