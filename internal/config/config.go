// package config loads application configuration from environment variables
// and the source rules file.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID         int
	TGApiHash       string
	TGSessionString string
	TGSessionFile   string

	// relay
	SourcesFile string
	StorageDir  string
	QueueSize   int
	Workers     int

	// nats, empty disables publishing
	NatsURL string

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TGApiID:         getEnvInt("TG_API_ID", 0),
		TGApiHash:       getEnv("TG_API_HASH", ""),
		TGSessionString: getEnv("TG_SESSION_STRING", ""),
		TGSessionFile:   getEnv("TG_SESSION_FILE", "./tg_session.db"),
		SourcesFile:     getEnv("SOURCES_FILE", "./sources.yaml"),
		StorageDir:      getEnv("STORAGE_DIR", "./media"),
		QueueSize:       getEnvInt("QUEUE_SIZE", 256),
		Workers:         getEnvInt("WORKERS", 4),
		NatsURL:         getEnv("NATS_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", "./logs/app.log"),
	}

	return cfg, nil
}

// Validate checks the settings without which the relay cannot start.
func (c *Config) Validate() error {
	if c.TGApiID == 0 {
		return fmt.Errorf("TG_API_ID is required")
	}
	if c.TGApiHash == "" {
		return fmt.Errorf("TG_API_HASH is required")
	}
	if c.TGSessionString == "" && c.TGSessionFile == "" {
		return fmt.Errorf("TG_SESSION_STRING or TG_SESSION_FILE is required")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
