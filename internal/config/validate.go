package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values that have no sensible fallback.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("channels[%d]: duplicate channel id %q", i, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}

	if c.Workflow.Workers <= 0 {
		return fmt.Errorf("workflow.workers must be positive, got %d", c.Workflow.Workers)
	}
	if c.Workflow.StageAttempts <= 0 {
		return fmt.Errorf("workflow.stage_attempts must be positive, got %d", c.Workflow.StageAttempts)
	}
	if c.Workflow.PollIntervalMinutes <= 0 {
		return fmt.Errorf("workflow.poll_interval_minutes must be positive, got %d", c.Workflow.PollIntervalMinutes)
	}
	if c.Workflow.DigestHour < 0 || c.Workflow.DigestHour > 23 {
		return fmt.Errorf("workflow.digest_hour must be between 0 and 23, got %d", c.Workflow.DigestHour)
	}
	if c.Workflow.DigestWindowHours <= 0 {
		return fmt.Errorf("workflow.digest_window_hours must be positive, got %d", c.Workflow.DigestWindowHours)
	}

	switch c.Logging.Format {
	case "", "auto", "json", "console":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	if c.Summarizer.Temperature < 0 || c.Summarizer.Temperature > 2 {
		return fmt.Errorf("summarizer.temperature must be between 0 and 2, got %v", c.Summarizer.Temperature)
	}
	if c.Summarizer.Model == "" {
		return fmt.Errorf("summarizer.model is required")
	}
	if c.Transcript.BaseURL == "" {
		return fmt.Errorf("transcript.base_url is required")
	}
	if c.Summarizer.BaseURL == "" {
		return fmt.Errorf("summarizer.base_url is required")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	return nil
}
