package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	DigestDir string `toml:"digest_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Channel describes one watched channel. Channels come exclusively from
// configuration; the pipeline never creates or deletes them.
type Channel struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Domain   string `toml:"domain"`
	Priority int    `toml:"priority"`
}

// Feed contains configuration for the channel feed source.
type Feed struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcript contains configuration for the transcript service.
type Transcript struct {
	BaseURL        string   `toml:"base_url"`
	Languages      []string `toml:"languages"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Summarizer contains configuration for the local summarization model.
type Summarizer struct {
	BaseURL            string  `toml:"base_url"`
	Model              string  `toml:"model"`
	Temperature        float64 `toml:"temperature"`
	MaxTranscriptChars int     `toml:"max_transcript_chars"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

// Workflow contains configuration for run scheduling and pipeline bounds.
type Workflow struct {
	PollIntervalMinutes int `toml:"poll_interval_minutes"`
	MaxVideosPerPoll    int `toml:"max_videos_per_poll"`
	Workers             int `toml:"workers"`
	RunTimeoutMinutes   int `toml:"run_timeout_minutes"`
	StageAttempts       int `toml:"stage_attempts"`
	RetryBackoffMillis  int `toml:"retry_backoff_millis"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
	DigestHour          int `toml:"digest_hour"`
	DigestWindowHours   int `toml:"digest_window_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Runs           bool   `toml:"runs"`
	Digests        bool   `toml:"digests"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for signalwatch.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Channels      []Channel     `toml:"channels"`
	Feed          Feed          `toml:"feed"`
	Transcript    Transcript    `toml:"transcript"`
	Summarizer    Summarizer    `toml:"summarizer"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/signalwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("signalwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.DigestDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChannelsByPriority returns the configured channels ordered by priority,
// highest first. Ordering among equal priorities follows the config file.
func (c *Config) ChannelsByPriority() []Channel {
	out := make([]Channel, len(c.Channels))
	copy(out, c.Channels)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority > out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
