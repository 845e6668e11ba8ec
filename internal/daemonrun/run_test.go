package daemonrun_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podforge/internal/daemonrun"
	"podforge/internal/ipc"
	"podforge/internal/testsupport"
)

func TestPIDFilePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	want := filepath.Join(cfg.Paths.LogDir, "podforged.pid")
	if got := daemonrun.PIDFilePath(cfg); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := daemonrun.PIDFilePath(nil); got != "" {
		t.Fatalf("expected empty path for nil config, got %q", got)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := daemonrun.Run(context.Background(), nil, daemonrun.Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunServesIPCUntilCancelled(t *testing.T) {
	engine := testsupport.NewStubEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engine.URL), testsupport.WithoutAPI())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: "error"})
	}()

	var client *ipc.Client
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		client, err = ipc.Dial(cfg.Paths.SocketPath)
		if err == nil {
			break
		}
		select {
		case runErr := <-done:
			if runErr != nil && strings.Contains(runErr.Error(), "operation not permitted") {
				t.Skipf("skipping daemon run test: %v", runErr)
			}
			t.Fatalf("daemon exited early: %v", runErr)
		default:
		}
		time.Sleep(50 * time.Millisecond)
	}
	if client == nil {
		t.Fatal("daemon socket never became available")
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("status over IPC: %v", err)
	}
	if !status.Status.Running {
		t.Fatal("expected daemon to auto-start")
	}
	if status.Status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.Status.PID)
	}

	pidPath := daemonrun.PIDFilePath(cfg)
	data, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		t.Fatal("pid file is empty")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down after cancel")
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file to be removed, stat err=%v", err)
	}
}
