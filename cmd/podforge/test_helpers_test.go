package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podforge/internal/config"
	"podforge/internal/daemon"
	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/storage"
	"podforge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	db         *storage.DB
	daemon     *daemon.Daemon
	server     *ipc.Server
	engine     *testsupport.StubEngine
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

// setupCLITestEnv builds an in-process daemon with an IPC server listening on
// the configured socket, plus a config file under a fake HOME so commands
// resolve it both via --config and via the default path.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("S3_BUCKET_NAME", "")

	engine := testsupport.NewStubEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engine.URL))

	configPath := filepath.Join(homeDir, ".config", "podforge", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	db := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedProfiles(t, db)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, db, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		cancel()
		_ = d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		db:         db,
		daemon:     d,
		server:     srv,
		engine:     engine,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\ndb_path = %q\nsocket_path = %q\napi_bind = %q\n\n[engine]\nbase_url = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.DBPath,
		cfg.Paths.SocketPath,
		cfg.Paths.APIBind,
		cfg.Engine.BaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
