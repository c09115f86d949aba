package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	// AdminToken guards the admin routes (set start time, cancel/remove
	// claims). The engine itself stays authorization-free.
	AdminToken string

	ReminderLead  time.Duration
	PendingTTL    time.Duration
	RelayInterval time.Duration
	RelayBatch    int

	EnableOutboxRelay bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "topicdesk"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),

		ReminderLead:  envMinutes("REMINDER_LEAD_MINUTES", 5),
		PendingTTL:    envMinutes("PENDING_CLAIM_TTL_MINUTES", 10),
		RelayInterval: envSeconds("OUTBOX_RELAY_INTERVAL_SECONDS", 2),
		RelayBatch:    envInt("OUTBOX_RELAY_BATCH", 100),

		EnableOutboxRelay: envBool("ENABLE_OUTBOX_RELAY", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envMinutes(name string, fallback int) time.Duration {
	return time.Duration(envInt(name, fallback)) * time.Minute
}

func envSeconds(name string, fallback int) time.Duration {
	return time.Duration(envInt(name, fallback)) * time.Second
}
