package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signalwatch/internal/config"
	"signalwatch/internal/store"
	"signalwatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
digest_dir = %q
log_dir = %q

[[channels]]
id = "UCtest000000000000000001"
name = "Test Channel"
domain = "ai"
priority = 10
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "digests"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// seedStore opens the store directly to prepare fixtures, then closes it so
// the CLI invocation can open its own handle.
func (env *cliTestEnv) seedStore(t *testing.T, fn func(*store.Store)) {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	testsupport.SeedChannels(t, st, env.cfg)
	if fn != nil {
		fn(st)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
