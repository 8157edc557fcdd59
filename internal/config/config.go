package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// AMQP (optional: leave URL empty to disable the archive pipeline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets archive
	SpreadsheetID string
	LedgerSheet   string

	// Export worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Requests allowed per client IP per minute on mutating endpoints.
	RateLimitPerMinute int
}

func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8082"),
		DBPath: getEnv("CASSA_DB_PATH", "./data/cassa.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cassa"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheet:   getEnv("GOOGLE_LEDGER_SHEET_NAME", "Ledger"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 25),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// Validate checks the whole configuration and reports every problem at
// once rather than failing on the first.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SpreadsheetID != "" && c.LedgerSheet == "" {
		problems = append(problems, "ledger sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if c.SyncBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
