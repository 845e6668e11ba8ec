package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration is internally consistent. It is
// called by Load after normalization, so paths are already absolute.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		problems = append(problems, "paths.db_path must not be empty")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		problems = append(problems, "paths.socket_path must not be empty")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		problems = append(problems, "paths.api_bind must not be empty")
	}

	base := strings.TrimSpace(c.Engine.BaseURL)
	if base == "" {
		problems = append(problems, "engine.base_url must not be empty")
	} else if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("engine.base_url %q is not a valid URL", base))
	}
	if c.Engine.TimeoutSeconds <= 0 {
		problems = append(problems, "engine.timeout_seconds must be positive")
	}
	if c.Engine.MaxRetries < 0 {
		problems = append(problems, "engine.max_retries must not be negative")
	}

	if c.Executor.Workers <= 0 {
		problems = append(problems, "executor.workers must be positive")
	}
	if c.Executor.QueueCapacity <= 0 {
		problems = append(problems, "executor.queue_capacity must be positive")
	}
	if c.Executor.RequeueInterval <= 0 {
		problems = append(problems, "executor.requeue_interval must be positive")
	}

	if c.ObjectStore.PresignTTL <= 0 {
		problems = append(problems, "object_store.presign_ttl_seconds must be positive")
	}
	if c.ObjectStore.UploadPartMB <= 0 {
		problems = append(problems, "object_store.upload_part_mb must be positive")
	}

	if c.Notifications.RequestTimeout <= 0 {
		problems = append(problems, "notifications.request_timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
