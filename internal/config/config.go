// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/i18n"
	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/dontwait/dontwait/internal/store"
	"github.com/joho/godotenv"
)

const minSecretKeyLength = 32

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

type Config struct {
	Port            string
	SecretKey       string
	CookieSecure    bool
	DefaultLanguage string
	LogLevel        string

	Store    StoreConfig
	Sessions SessionConfig
	Telegram TelegramConfig

	ChatSearchTimeout time.Duration
	SubmitRateLimit   int
	SubmitRateWindow  time.Duration
}

type StoreConfig struct {
	Driver  string
	URL     string
	Key     string
	DSN     string
	DBPath  string
	Timeout time.Duration
}

type SessionConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// LoadDotEnv loads the given files into the environment. Missing files are skipped and
// variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load builds a Config from the environment and rejects missing or malformed values.
func Load() (Config, error) {
	var err error
	cfg := Config{
		DefaultLanguage: strings.ToLower(valueOrDefault("DEFAULT_LANGUAGE", i18n.LangEL)),
		LogLevel:        strings.ToLower(valueOrDefault("LOG_LEVEL", "info")),
		Store: StoreConfig{
			Driver: strings.ToLower(valueOrDefault("STORE_DRIVER", store.DriverREST)),
			URL:    strings.TrimSpace(os.Getenv("STORE_URL")),
			Key:    strings.TrimSpace(os.Getenv("STORE_KEY")),
			DSN:    strings.TrimSpace(os.Getenv("STORE_DSN")),
			DBPath: valueOrDefault("DB_PATH", "data/dontwait.db"),
		},
		Sessions: SessionConfig{
			Driver:        strings.ToLower(valueOrDefault("SESSION_STORE", sessions.DriverMemory)),
			RedisAddr:     valueOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		},
		Telegram: TelegramConfig{
			Token: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		},
	}

	if cfg.SecretKey, err = ResolveSecretKey(); err != nil {
		return Config{}, err
	}
	if cfg.Port, err = ResolvePort(); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = boolOrDefault("COOKIE_SECURE", false); err != nil {
		return Config{}, err
	}
	if cfg.Store.Timeout, err = durationOrDefault("STORE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Sessions.RedisDB, err = intOrDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.Sessions.TTL, err = durationOrDefault("SESSION_TTL", sessions.DefaultTTL); err != nil {
		return Config{}, err
	}
	if cfg.ChatSearchTimeout, err = durationOrDefault("CHAT_SEARCH_TIMEOUT", 20*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SubmitRateLimit, err = intOrDefault("SUBMIT_RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.SubmitRateWindow, err = durationOrDefault("SUBMIT_RATE_WINDOW", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		cfg.Telegram.ChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules of the store, session and notifier settings.
func (cfg Config) Validate() error {
	switch cfg.Store.Driver {
	case store.DriverREST:
		if cfg.Store.URL == "" {
			return errors.New("STORE_URL is required for the rest store")
		}
		if cfg.Store.Key == "" {
			return errors.New("STORE_KEY is required for the rest store")
		}
	case store.DriverPostgres:
		if cfg.Store.DSN == "" {
			return errors.New("STORE_DSN is required for the postgres store")
		}
	case store.DriverSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return errors.New("DB_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}

	switch cfg.Sessions.Driver {
	case sessions.DriverMemory:
	case sessions.DriverRedis:
		if cfg.Sessions.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", cfg.Sessions.Driver)
	}

	if (cfg.Telegram.Token == "") != (cfg.Telegram.ChatID == 0) {
		return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if cfg.SubmitRateLimit < 1 {
		return errors.New("SUBMIT_RATE_LIMIT must be positive")
	}
	for name, value := range map[string]time.Duration{
		"STORE_TIMEOUT":       cfg.Store.Timeout,
		"SESSION_TTL":         cfg.Sessions.TTL,
		"CHAT_SEARCH_TIMEOUT": cfg.ChatSearchTimeout,
		"SUBMIT_RATE_WINDOW":  cfg.SubmitRateWindow,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", cfg.LogLevel)
	}
	return nil
}

func ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretKeys[strings.ToLower(secret)]; insecure {
		return "", errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func ResolvePort() (string, error) {
	raw := valueOrDefault("PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil {
		return "", fmt.Errorf("invalid PORT %q: %w", raw, err)
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid PORT %q: must be between 1 and 65535", raw)
	}
	return strconv.Itoa(port), nil
}

func valueOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// boolOrDefault accepts true/1/yes/on and false/0/no/off.
func boolOrDefault(key string, fallback bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return fallback, nil
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s: %q is not a boolean", key, raw)
	}
}
