package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:3001",
}

// Config holds process settings. Values come from an optional YAML file
// (CONFIG_FILE) and are then overridden by environment variables.
type Config struct {
	Env            string   `yaml:"env"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	LogLevel       string   `yaml:"log_level"`
	APIPrefix      string   `yaml:"api_prefix"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	MaxRoomSize int `yaml:"max_room_size"`

	HeartbeatInterval time.Duration `yaml:"ws_heartbeat_interval"`
	ReadTimeout       time.Duration `yaml:"ws_timeout"`
	MaxMessageBytes   int64         `yaml:"ws_max_message_bytes"`
	MessagesPerSecond float64       `yaml:"ws_messages_per_second"`
	MessageBurst      int           `yaml:"ws_message_burst"`

	RedisAddr       string `yaml:"redis_addr"`
	PresenceChannel string `yaml:"presence_channel"`

	StatsSchedule string `yaml:"stats_schedule"`
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func defaults() *Config {
	return &Config{
		Env:               "dev",
		Host:              "0.0.0.0",
		Port:              8000,
		LogLevel:          "info",
		AllowedOrigins:    append([]string(nil), defaultOrigins...),
		MaxRoomSize:       10,
		HeartbeatInterval: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		MaxMessageBytes:   1 << 20,
		MessagesPerSecond: 100,
		MessageBurst:      200,
		PresenceChannel:   "collab:presence",
		StatsSchedule:     "@every 1m",
	}
}

// LoadConfig loads configuration from CONFIG_FILE (if set) and the environment.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Env = getEnvOrDefault("APP_ENV", cfg.Env)
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", cfg.LogLevel))
	cfg.APIPrefix = getEnvOrDefault("API_PREFIX", cfg.APIPrefix)
	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.PresenceChannel = getEnvOrDefault("PRESENCE_CHANNEL", cfg.PresenceChannel)

	// STATS_SCHEDULE may be set to an empty string to disable the reporter.
	if v, ok := os.LookupEnv("STATS_SCHEDULE"); ok {
		cfg.StatsSchedule = strings.TrimSpace(v)
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, v)
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.MaxRoomSize, err = getEnvInt("MAX_ROOM_SIZE", cfg.MaxRoomSize); err != nil {
		return err
	}
	if cfg.MessageBurst, err = getEnvInt("WS_MESSAGE_BURST", cfg.MessageBurst); err != nil {
		return err
	}
	maxBytes, err := getEnvInt("WS_MAX_MESSAGE_BYTES", int(cfg.MaxMessageBytes))
	if err != nil {
		return err
	}
	cfg.MaxMessageBytes = int64(maxBytes)
	if cfg.MessagesPerSecond, err = getEnvFloat("WS_MESSAGES_PER_SECOND", cfg.MessagesPerSecond); err != nil {
		return err
	}
	if cfg.HeartbeatInterval, err = getEnvSeconds("WS_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return err
	}
	if cfg.ReadTimeout, err = getEnvSeconds("WS_TIMEOUT", cfg.ReadTimeout); err != nil {
		return err
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("unsupported log level: " + cfg.LogLevel + ". Supported: debug, info, warn, error")
	}
	if cfg.MaxRoomSize < 0 {
		return fmt.Errorf("max room size must not be negative, got %d", cfg.MaxRoomSize)
	}
	if cfg.HeartbeatInterval <= 0 || cfg.ReadTimeout <= 0 {
		return errors.New("websocket heartbeat interval and timeout must be positive")
	}
	if cfg.HeartbeatInterval >= cfg.ReadTimeout {
		return fmt.Errorf("websocket heartbeat interval (%s) must be shorter than timeout (%s)", cfg.HeartbeatInterval, cfg.ReadTimeout)
	}
	if cfg.MaxMessageBytes <= 0 {
		return fmt.Errorf("websocket max message size must be positive, got %d", cfg.MaxMessageBytes)
	}
	if cfg.MessagesPerSecond <= 0 || cfg.MessageBurst <= 0 {
		return errors.New("websocket rate limit and burst must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// getEnvSeconds accepts either a bare number of seconds ("30") or a Go
// duration string ("30s", "1m").
func getEnvSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
