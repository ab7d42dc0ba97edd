package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/irbid-geoai/geoai-monitor/pkg/validation"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaterializeTimeout time.Duration
	RetryBackoff       time.Duration
	MaxRequestBodySize int64

	// Scene source selection: memory, local, http, azure or geotiff
	SceneSource         string
	SceneRoot           string
	SceneAPIURL         string
	AzureAccount        string
	AzureKey            string
	AzureSceneContainer string

	PostgresURL     string
	ModelDir        string
	StudyRegionFile string
	OverpassURL     string

	// Service credential, inline JSON or a path to it
	CredentialJSON string
	CredentialFile string

	LogLevel  string
	LogFormat string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Credential returns the configured service credential payload, if any.
func (c *Config) Credential() ([]byte, error) {
	if strings.TrimSpace(c.CredentialJSON) != "" {
		return []byte(c.CredentialJSON), nil
	}
	if c.CredentialFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.CredentialFile)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	return data, nil
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                getEnvOrDefault("PORT", "8080"),
		RequestTimeout:      parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		MaterializeTimeout:  parseDurationOrDefault("MATERIALIZE_TIMEOUT", 60*time.Second),
		RetryBackoff:        parseDurationOrDefault("RETRY_BACKOFF", time.Second),
		MaxRequestBodySize:  parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		SceneSource:         strings.ToLower(getEnvOrDefault("SCENE_SOURCE", "local")),
		SceneRoot:           getEnvOrDefault("SCENE_ROOT", "./data/scenes"),
		SceneAPIURL:         os.Getenv("SCENE_API_URL"),
		AzureAccount:        os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:            os.Getenv("AZURE_STORAGE_KEY"),
		AzureSceneContainer: getEnvOrDefault("AZURE_SCENE_CONTAINER", "scenes"),
		PostgresURL:         os.Getenv("POSTGRES_URL"),
		ModelDir:            os.Getenv("MODEL_DIR"),
		StudyRegionFile:     os.Getenv("STUDY_REGION_FILE"),
		OverpassURL:         os.Getenv("OVERPASS_URL"),
		CredentialJSON:      os.Getenv("GEE_JSON"),
		CredentialFile:      os.Getenv("GEE_JSON_FILE"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the settings each scene source needs.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.MaterializeTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, materialize=%s)",
			c.RequestTimeout, c.MaterializeTimeout)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("RETRY_BACKOFF must be >= 0 (got %s)", c.RetryBackoff)
	}

	endpoints := validation.DefaultEndpoints()
	switch c.SceneSource {
	case "memory":
	case "local", "geotiff":
		if strings.TrimSpace(c.SceneRoot) == "" {
			return fmt.Errorf("SCENE_ROOT is required for scene source %q", c.SceneSource)
		}
	case "http":
		if _, err := endpoints.Check("SCENE_API_URL", c.SceneAPIURL); err != nil {
			return err
		}
	case "azure":
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for scene source azure")
		}
	default:
		return fmt.Errorf("unsupported SCENE_SOURCE: %q", c.SceneSource)
	}

	if c.OverpassURL != "" {
		if _, err := endpoints.Check("OVERPASS_URL", c.OverpassURL); err != nil {
			return err
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
