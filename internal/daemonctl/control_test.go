package daemonctl_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"podforge/internal/api"
	"podforge/internal/daemon"
	"podforge/internal/daemonctl"
	"podforge/internal/executor"
	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/testsupport"
)

func TestForceKillProcessRefusesOwnPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "podforged.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	_, err := daemonctl.ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Fatalf("expected refusal for own pid, got %v", err)
	}
}

func TestForceKillProcessRequiresPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "missing.pid")

	_, err := daemonctl.ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "unable to determine daemon pid") {
		t.Fatalf("expected pid discovery failure, got %v", err)
	}
}

func TestForceKillProcessKillsAndCleans(t *testing.T) {
	helper := exec.Command("sleep", "60")
	if err := helper.Start(); err != nil {
		t.Skipf("start helper process: %v", err)
	}
	defer func() {
		_ = helper.Wait()
	}()

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "podforged.pid")
	lockPath := filepath.Join(dir, "podforged.lock")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", helper.Process.Pid)), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatalf("write lock file: %v", err)
	}

	killed, err := daemonctl.ForceKillProcess(pidPath, lockPath, 0)
	if err != nil {
		t.Fatalf("ForceKillProcess: %v", err)
	}
	if killed != helper.Process.Pid {
		t.Fatalf("expected killed pid %d, got %d", helper.Process.Pid, killed)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")

	_, err := daemonctl.WaitForClient(socket, 300*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "daemon failed to start") {
		t.Fatalf("expected startup timeout, got %v", err)
	}
}

func TestProcessInfoWithoutSocket(t *testing.T) {
	alive, pid, err := daemonctl.ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if alive || pid != 0 {
		t.Fatalf("expected offline daemon, got alive=%v pid=%d", alive, pid)
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := daemonctl.StopAndTerminate(cfg.Paths.SocketPath, cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	engine := testsupport.NewStubEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engine.URL))
	db := testsupport.MustOpenStore(t, cfg)
	jobs := executor.NewStore(db)

	ctx := context.Background()
	job, err := jobs.Create(ctx, "generate_podcast", nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := jobs.Finish(ctx, job.ID, executor.StatusFailed, nil, "engine exploded"); err != nil {
		t.Fatalf("finish job: %v", err)
	}

	status, err := daemonctl.BuildStatusSnapshot(ctx, cfg.Paths.SocketPath, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline snapshot")
	}
	if status.JobStats["failed"] != 1 {
		t.Fatalf("expected failed job in stats, got %v", status.JobStats)
	}
	if status.LastError != "engine exploded" {
		t.Fatalf("unexpected last error: %q", status.LastError)
	}
	if status.QueueDBPath != cfg.Paths.DBPath {
		t.Fatalf("unexpected queue db path: %q", status.QueueDBPath)
	}
	if !status.Engine.Healthy {
		t.Fatalf("expected direct engine probe to pass: %+v", status.Engine)
	}
}

func TestBuildStatusSnapshotRequiresConfig(t *testing.T) {
	_, err := daemonctl.BuildStatusSnapshot(context.Background(), "/tmp/podforged.sock", nil)
	if err == nil || !strings.Contains(err.Error(), "configuration not available") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildSystemChecks(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic("https://ntfy.example.com/podforge"))

	lines := daemonctl.BuildSystemChecks(cfg, api.DaemonStatus{Engine: api.EngineHealth{Healthy: true}})
	byLabel := make(map[string]api.StatusLine, len(lines))
	for _, line := range lines {
		byLabel[line.Label] = line
	}

	if byLabel["Podforge"].Severity != "warn" {
		t.Fatalf("expected warning for stopped daemon: %+v", byLabel["Podforge"])
	}
	if byLabel["Engine"].Severity != "ok" {
		t.Fatalf("expected healthy engine line: %+v", byLabel["Engine"])
	}
	if byLabel["Artifacts"].Detail != "Local tier only" {
		t.Fatalf("expected local artifact tier: %+v", byLabel["Artifacts"])
	}
	if byLabel["Notifications"].Severity != "ok" {
		t.Fatalf("expected configured notifications: %+v", byLabel["Notifications"])
	}
}

func TestBuildStoragePathChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	lines := daemonctl.BuildStoragePathChecks(cfg)
	if len(lines) != 4 {
		t.Fatalf("expected 4 storage lines, got %d", len(lines))
	}
	for _, line := range lines {
		if line.Severity != "ok" {
			t.Fatalf("expected ok severity for %s, got %+v", line.Label, line)
		}
	}
}

func TestProcessInfoAndShutdownWithLiveDaemon(t *testing.T) {
	engine := testsupport.NewStubEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithEngineURL(engine.URL))
	db := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedProfiles(t, db)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, db, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.Paths.SocketPath
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping live daemon test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := daemonctl.WaitForClient(socket, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForClient: %v", err)
	}
	if _, err := client.Start(); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	_ = client.Close()

	alive, pid, err := daemonctl.ProcessInfo(socket)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !alive || pid != os.Getpid() {
		t.Fatalf("expected live daemon with pid %d, got alive=%v pid=%d", os.Getpid(), alive, pid)
	}

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), socket, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if !snapshot.Running {
		t.Fatalf("expected running snapshot over IPC: %+v", snapshot)
	}

	stopClient, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("dial for stop: %v", err)
	}
	if _, err := stopClient.Stop(); err != nil {
		t.Fatalf("stop daemon: %v", err)
	}
	_ = stopClient.Close()

	if err := daemonctl.WaitForShutdown(socket, 5*time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}
