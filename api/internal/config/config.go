package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	GeminiAPIKey string
	GeminiModel  string
	PromptFile   string

	SettingsDir    string
	SettingsFormat string
	SettingsTTL    time.Duration

	DatabaseURL      string
	RedisURL         string
	AnalysisMaxAge   time.Duration
	HistoryRetention time.Duration

	TelegramBotToken string
	WebhookURL       string

	RequestTimeout time.Duration
	LogLevel       string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// Load reads the process environment. A .env file in the working directory is
// applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8000"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		PromptFile:   getEnv("PROMPT_FILE", ""),

		SettingsDir:    getEnv("SETTINGS_DIR", "configs"),
		SettingsFormat: getEnv("SETTINGS_FORMAT", "yaml"),
		SettingsTTL:    getDuration("SETTINGS_TTL", time.Hour),

		DatabaseURL:      resolveDSN(),
		RedisURL:         getEnv("REDIS_URL", ""),
		AnalysisMaxAge:   getDuration("ANALYSIS_CACHE_MAX_AGE", 7*24*time.Hour),
		HistoryRetention: getDuration("HISTORY_RETENTION", 0),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		RequestTimeout: getDuration("REQUEST_TIMEOUT", 60*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// LoadBot is Load plus the settings only the Telegram binary needs.
func LoadBot() (*Config, error) {
	cfg := Load()
	if cfg.TelegramBotToken == "" {
		return nil, errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	return cfg, nil
}

// resolveDSN prefers DATABASE_URL, then builds one from POSTGRES_*/PG* when PGHOST is set.
// Without either the service runs without a database.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	host := getEnv("PGHOST", "")
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "afval"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "afval"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns a JSON logger on stdout tagged with the service name.
func (c *Config) Logger(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.Level()})).With("service", service)
}
