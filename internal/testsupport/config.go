package testsupport

import (
	"path/filepath"
	"testing"

	"signalwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.DigestDir = filepath.Join(base, "digests")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Channels = []config.Channel{
		{ID: "UCtest000000000000000001", Name: "Test Channel", Domain: "ai", Priority: 10},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithChannels replaces the watched channel list on the test config.
func WithChannels(channels ...config.Channel) ConfigOption {
	return func(c *config.Config) {
		c.Channels = channels
	}
}

// WithWorkers overrides the pipeline worker bound on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.Workers = workers
	}
}
