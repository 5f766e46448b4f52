package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the momentum core.
type Config struct {
	Port string

	// Bithumb (KRW spot)
	BithumbAPIKey    string
	BithumbAPISecret string

	// Bitget (USDT perpetual futures)
	BitgetAPIKey     string
	BitgetAPISecret  string
	BitgetPassphrase string

	// Telegram notification sink
	TelegramToken  string
	TelegramChatID string

	// Scheduling
	Timezone     string // IANA zone the wall-clock triggers fire in
	StrategyPath string // YAML strategy schedule file

	// Jobs
	EnableTrading  bool // submit real orders; off keeps the process record-only
	EnableRecorder bool
	EnableMonitor  bool
	TopN           int

	// Database
	DBPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		BithumbAPIKey:    os.Getenv("BITHUMB_API_KEY"),
		BithumbAPISecret: os.Getenv("BITHUMB_API_SECRET"),
		BitgetAPIKey:     os.Getenv("BITGET_API_KEY"),
		BitgetAPISecret:  os.Getenv("BITGET_API_SECRET"),
		BitgetPassphrase: os.Getenv("BITGET_PASSPHRASE"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		Timezone:         getEnv("TIMEZONE", "Asia/Seoul"),
		StrategyPath:     getEnv("STRATEGY_CONFIG", "./strategies.yaml"),
		EnableTrading:    getEnv("ENABLE_TRADING", "false") == "true",
		EnableRecorder:   getEnv("ENABLE_RECORDER", "true") == "true",
		EnableMonitor:    getEnv("ENABLE_MONITOR", "true") == "true",
		TopN:             getEnvInt("TOP_N", 5),
		DBPath:           getEnv("DB_PATH", "./data/momentum.db"),
	}, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TimezoneTag is the short label stored on ledger rows (e.g. "KST").
func (c *Config) TimezoneTag() string {
	loc, err := c.Location()
	if err != nil {
		return c.Timezone
	}
	tag, _ := time.Now().In(loc).Zone()
	return tag
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
