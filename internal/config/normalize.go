package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.applyEnvOverrides()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	expanded, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("expand data_dir: %w", err)
	}
	c.Paths.DataDir = expanded

	expanded, err = expandPath(c.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("expand log_dir: %w", err)
	}
	c.Paths.LogDir = expanded

	expanded, err = expandPath(c.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("expand db_path: %w", err)
	}
	c.Paths.DBPath = expanded

	expanded, err = expandPath(c.Paths.SocketPath)
	if err != nil {
		return fmt.Errorf("expand socket_path: %w", err)
	}
	c.Paths.SocketPath = expanded
	return nil
}

// applyEnvOverrides lets deployment environments take precedence over the
// config file for credentials and endpoints. Object store credentials
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY) are never stored in config and
// are read from the environment by the artifacts package directly.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("PODCAST_ENGINE_URL"); ok && strings.TrimSpace(v) != "" {
		c.Engine.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("PODCAST_ENGINE_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.Engine.APIKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("S3_BUCKET_NAME"); ok && strings.TrimSpace(v) != "" {
		c.ObjectStore.Bucket = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("S3_REGION"); ok && strings.TrimSpace(v) != "" {
		c.ObjectStore.Region = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("S3_ENDPOINT_URL"); ok && strings.TrimSpace(v) != "" {
		c.ObjectStore.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("PODFORGE_API_TOKEN"); ok && strings.TrimSpace(v) != "" {
		c.Paths.APIToken = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("NTFY_TOPIC"); ok && strings.TrimSpace(v) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(v)
	}
}

func (c *Config) normalizeLogging() {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = "console"
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Logging.Level = level
	default:
		c.Logging.Level = defaultLogLevel
	}
}
