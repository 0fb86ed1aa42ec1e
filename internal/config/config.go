package config

import (
	"fmt"
	"os"
	"time"

	"github.com/swxkit/kpindex/pkg/source"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig `json:"server"`
	Source SourceConfig `json:"source"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Timeout    time.Duration `json:"timeout"`
}

// SourceConfig holds sample source configuration
type SourceConfig struct {
	URL              string `json:"url"`
	CachePath        string `json:"cache_path"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	CompressionLevel int    `json:"compression_level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":9180"),
			Timeout:    30 * time.Second,
		},
		Source: SourceConfig{
			URL:              getEnv("KP_SOURCE_URL", source.DefaultURL),
			CachePath:        getEnv("CACHE_PATH", "./data"),
			TimeoutSeconds:   getEnvInt("HTTP_TIMEOUT_SECONDS", 60),
			CompressionLevel: getEnvInt("COMPRESSION_LEVEL", 3),
		},
	}
}

// ToCacheConfig converts to source.CacheConfig
func (c *Config) ToCacheConfig() *source.CacheConfig {
	return &source.CacheConfig{
		Path:             c.Source.CachePath,
		CompressionLevel: c.Source.CompressionLevel,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Source.URL == "" {
		return fmt.Errorf("source URL is required")
	}

	if c.Source.CachePath == "" {
		return fmt.Errorf("cache path is required")
	}

	if c.Source.TimeoutSeconds < 1 {
		return fmt.Errorf("source timeout must be at least 1 second")
	}

	if c.Source.CompressionLevel < 1 || c.Source.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
