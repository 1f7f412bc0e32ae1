// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	BaseURL     string
	APIPrefix   string
	HTTPTimeout time.Duration
	Tutor       string
	DBPath      string
	ChatLog     ChatLogConfig
	Audio       AudioConfig
	Serve       ServeConfig
}

// ChatLogConfig controls NDJSON conversation logging.
type ChatLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// AudioConfig names the external commands used for recording and
// playback. Empty commands disable the corresponding feature.
type AudioConfig struct {
	RecordCommand string
	RecordArgs    []string
	PlayCommand   string
	PlayArgs      []string
}

// ServeConfig configures the local practice backend.
type ServeConfig struct {
	Port           string
	FixturesPath   string
	AllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CHAT_LOG_QUEUE_SIZE", 256)
	if queueSize <= 0 {
		queueSize = 256
	}

	cfg := &Config{
		BaseURL:     getEnv("TUTOR_BASE_URL", "http://localhost:8000"),
		APIPrefix:   getEnv("TUTOR_API_PREFIX", "/api"),
		HTTPTimeout: time.Duration(getEnvInt("TUTOR_HTTP_TIMEOUT_SECONDS", 120)) * time.Second,
		Tutor:       getEnv("TUTOR_PERSONA", "jan"),
		DBPath:      getEnv("DB_PATH", "./data/bijleslab.db"),
		ChatLog: ChatLogConfig{
			Enabled:   getEnvBool("CHAT_LOG_ENABLED", true),
			Dir:       getEnv("CHAT_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
		Audio: AudioConfig{
			RecordCommand: getEnv("AUDIO_RECORD_COMMAND", ""),
			RecordArgs:    splitArgs(getEnv("AUDIO_RECORD_ARGS", "")),
			PlayCommand:   getEnv("AUDIO_PLAY_COMMAND", ""),
			PlayArgs:      splitArgs(getEnv("AUDIO_PLAY_ARGS", "")),
		},
		Serve: ServeConfig{
			Port:           getEnv("PORT", "8000"),
			FixturesPath:   getEnv("FIXTURES_PATH", ""),
			AllowedOrigins: splitArgs(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("TUTOR_BASE_URL cannot be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("TUTOR_BASE_URL must start with http:// or https://")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("TUTOR_API_PREFIX must start with /")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("TUTOR_HTTP_TIMEOUT_SECONDS must be > 0")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ChatLog.Enabled && c.ChatLog.Dir == "" {
		return fmt.Errorf("CHAT_LOG_DIR cannot be empty when logging is enabled")
	}
	if c.Serve.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}
