package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Angel One credentials
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	ListenAddr    string

	// Market data
	Exchange       string
	CandleInterval string
	RSIPeriod      int
	FetchTimeout   time.Duration

	// Watchlist seed file (YAML); falls back to the built-in defaults.
	WatchlistSeedPath string

	// Alerts
	NtfyTopic        string
	NtfyBaseURL      string
	TelegramBotToken string
	TelegramChatID   string

	// Scheduler cron specs (IST)
	PremarketSpec string
	LiveSpec      string
	EODSpec       string
}

// Load reads .env (if present) then the environment, with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		AngelAPIKey:     mustEnv("ANGEL_API_KEY"),
		AngelClientCode: mustEnv("ANGEL_CLIENT_CODE"),
		AngelPassword:   mustEnv("ANGEL_PASSWORD"),
		AngelTOTPSecret: mustEnv("ANGEL_TOTP_SECRET"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/tradelog.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),

		Exchange:       getEnv("EXCHANGE", "NSE"),
		CandleInterval: getEnv("CANDLE_INTERVAL", "FIVE_MINUTE"),
		RSIPeriod:      getEnvInt("RSI_PERIOD", 14),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),

		WatchlistSeedPath: getEnv("WATCHLIST_SEED", ""),

		NtfyTopic:        getEnv("NTFY_TOPIC", ""),
		NtfyBaseURL:      getEnv("NTFY_BASE_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		PremarketSpec: getEnv("PREMARKET_CRON", ""),
		LiveSpec:      getEnv("LIVE_CRON", ""),
		EODSpec:       getEnv("EOD_CRON", ""),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
