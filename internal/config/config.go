// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

const (
	defaultListingURL = "https://www.finn.no/bap/forsale/search.html?category=0.93&search_type=SEARCH_ID_BAP_FREE&sort=1&sub_category=1.93.3905"
	defaultAdBaseURL  = "https://www.finn.no/bap/forsale/ad.html?finnkode="
)

// Config holds the application configuration.
type Config struct {
	Channel string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	To           string

	TelegramBotToken string
	TelegramChatID   int64

	ListingURL    string
	AdBaseURL     string
	SubjectSuffix string

	LedgerPath      string
	LedgerRetention time.Duration
	ErrorLogPath    string
	LogLevel        string

	BaseInterval        time.Duration
	MaxInterval         time.Duration
	QuietUntilHour      int
	QuietInterval       time.Duration
	HTTPTimeout         time.Duration
	DetailFetchInterval time.Duration
}

// LoadDotEnv seeds the environment from path if the file exists.
// Variables already set in the environment take precedence.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Channel:       strings.ToLower(envOrDefault("NOTIFY_CHANNEL", ChannelEmail)),
		SMTPHost:      envOrDefault("SMTP_HOST", "smtp.googlemail.com"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		To:            os.Getenv("NOTIFY_TO"),
		ListingURL:    envOrDefault("LISTING_URL", defaultListingURL),
		AdBaseURL:     envOrDefault("AD_BASE_URL", defaultAdBaseURL),
		SubjectSuffix: os.Getenv("SUBJECT_SUFFIX"),
		LedgerPath:    envOrDefault("LEDGER_PATH", "./data/seen_ads.json"),
		ErrorLogPath:  envOrDefault("ERROR_LOG_PATH", "./data/err.log"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
	}
	cfg.From = envOrDefault("NOTIFY_FROM", cfg.SMTPUsername)

	var err error
	if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.QuietUntilHour, err = intEnv("QUIET_UNTIL_HOUR", 7); err != nil {
		return nil, err
	}
	if cfg.QuietUntilHour < 0 || cfg.QuietUntilHour > 24 {
		return nil, fmt.Errorf("QUIET_UNTIL_HOUR must be between 0 and 24, got %d", cfg.QuietUntilHour)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"LEDGER_RETENTION", 0, &cfg.LedgerRetention},
		{"POLL_BASE_INTERVAL", 20 * time.Second, &cfg.BaseInterval},
		{"POLL_MAX_INTERVAL", time.Hour, &cfg.MaxInterval},
		{"QUIET_INTERVAL", time.Hour, &cfg.QuietInterval},
		{"HTTP_TIMEOUT", 30 * time.Second, &cfg.HTTPTimeout},
		{"DETAIL_FETCH_INTERVAL", time.Second, &cfg.DetailFetchInterval},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.BaseInterval <= 0 {
		return nil, fmt.Errorf("POLL_BASE_INTERVAL must be positive")
	}
	if cfg.MaxInterval < cfg.BaseInterval {
		return nil, fmt.Errorf("POLL_MAX_INTERVAL must not be less than POLL_BASE_INTERVAL")
	}

	switch cfg.Channel {
	case ChannelEmail:
		if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
			return nil, fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD are required")
		}
		if cfg.To == "" {
			return nil, fmt.Errorf("NOTIFY_TO is required")
		}
	case ChannelTelegram:
		cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
		if cfg.TelegramBotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
		if raw == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
		if cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.Channel)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}
