package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// HTTP Server
	Port               string   `koanf:"PORT"`
	RateLimitPerMinute int      `koanf:"RATE_LIMIT_PER_MINUTE"`
	TrustedProxies     []string `koanf:"TRUSTED_PROXIES"`

	// Database
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`

	// AMQP, disabled when the URL is empty
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Sessions
	SessionInactivityTimeout time.Duration `koanf:"SESSION_INACTIVITY_TIMEOUT"`
	SessionMaxAge            time.Duration `koanf:"SESSION_MAX_AGE"`

	// Notification scheduler
	NotifyHour         int           `koanf:"NOTIFY_HOUR"`
	SchedulerInterval  time.Duration `koanf:"SCHEDULER_INTERVAL"`
	SchedulerBatchSize int           `koanf:"SCHEDULER_BATCH_SIZE"`

	// Push delivery, log sender when no credentials are set
	FCMProjectID       string `koanf:"FCM_PROJECT_ID"`
	FCMCredentialsFile string `koanf:"FCM_CREDENTIALS_FILE"`
	FCMCredentialsJSON string `koanf:"FCM_CREDENTIALS_JSON"`

	// Google Sheets export
	GoogleSpreadsheetID      string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `koanf:"GOOGLE_SHEET_NAME"`
	GoogleServiceAccountFile string `koanf:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `koanf:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Dashboard cache
	CacheSize int           `koanf:"CACHE_SIZE"`
	CacheTTL  time.Duration `koanf:"CACHE_TTL"`

	// Logging
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// Defaults returns the configuration used for every unset variable.
func Defaults() Config {
	return Config{
		Port:               "8081",
		RateLimitPerMinute: 60,

		SQLiteDBPath: "./data/cashbook.db",

		AMQPExchange: "cashbook",
		AMQPQueue:    "push_notifications",

		SessionInactivityTimeout: 30 * time.Minute,
		SessionMaxAge:            7 * 24 * time.Hour,

		NotifyHour:         9,
		SchedulerInterval:  time.Minute,
		SchedulerBatchSize: 50,

		GoogleSheetName: "Transactions",

		CacheSize: 256,
		CacheTTL:  5 * time.Minute,

		LogLevel:  "INFO",
		LogFormat: "text",
	}
}

// Load reads the process environment over Defaults. Values that do not
// convert to their field type are reported as an error.
func Load() (*Config, error) {
	return load(env.Provider("", ".", nil))
}

func load(p koanf.Provider) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(p, nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	// Empty variables count as unset.
	for key, v := range k.All() {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			k.Delete(key)
		}
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)
	return &cfg, nil
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Addr is the listen address for Port.
func (c *Config) Addr() string { return ":" + c.Port }

func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

func (c *Config) FCMEnabled() bool {
	return c.FCMCredentialsFile != "" || c.FCMCredentialsJSON != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if c.SQLiteDBPath != ":memory:" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP settings if a broker is configured
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate sessions
	if c.SessionInactivityTimeout < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session inactivity timeout %v: must be at least 1 minute", c.SessionInactivityTimeout))
	}
	if c.SessionMaxAge < c.SessionInactivityTimeout {
		errors = append(errors, fmt.Sprintf("invalid session max age %v: must not be shorter than the inactivity timeout", c.SessionMaxAge))
	}

	// Validate scheduler configuration
	if c.NotifyHour < 0 || c.NotifyHour > 23 {
		errors = append(errors, fmt.Sprintf("invalid notify hour %d: must be between 0 and 23", c.NotifyHour))
	}
	if c.SchedulerBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid scheduler batch size %d: must be at least 1", c.SchedulerBatchSize))
	} else if c.SchedulerBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid scheduler batch size %d: must be at most 1000", c.SchedulerBatchSize))
	}
	if c.SchedulerInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 second", c.SchedulerInterval))
	} else if c.SchedulerInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at most 24 hours", c.SchedulerInterval))
	}

	// Validate push credentials
	if c.FCMCredentialsFile != "" {
		if _, err := os.Stat(c.FCMCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("FCM credentials file does not exist: %s", c.FCMCredentialsFile))
		}
	}

	// Validate Google Sheets configuration if export is enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate middleware and cache
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	for _, p := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP or CIDR", p))
		}
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}

	// Validate logging
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
