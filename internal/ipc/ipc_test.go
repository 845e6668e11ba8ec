package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podforge/internal/daemon"
	"podforge/internal/ipc"
	"podforge/internal/logging"
	"podforge/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
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
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.Status.PID)
	}
	if !status.Status.Engine.Healthy {
		t.Fatalf("expected healthy engine, got %+v", status.Status.Engine)
	}

	submitResp, err := client.Submit(ipc.SubmitRequest{
		EpisodeProfile: "tech_discussion",
		SpeakerProfile: "duo_hosts",
		EpisodeName:    "ipc-roundtrip",
		Content:        "Today we cover socket plumbing.",
	})
	if err != nil {
		t.Fatalf("Submit RPC failed: %v", err)
	}
	if submitResp.Receipt.JobID == "" || submitResp.Receipt.Status != "submitted" {
		t.Fatalf("unexpected receipt: %+v", submitResp.Receipt)
	}

	var episode ipc.Episode
	deadline := time.Now().Add(15 * time.Second)
	for {
		listResp, listErr := client.EpisodesList("")
		if listErr != nil {
			t.Fatalf("EpisodesList failed: %v", listErr)
		}
		if len(listResp.Episodes) == 1 && listResp.Episodes[0].JobStatus == "completed" {
			episode = listResp.Episodes[0]
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("generation did not complete; episodes=%+v", listResp.Episodes)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if episode.Owner != "local" {
		t.Fatalf("expected default owner, got %q", episode.Owner)
	}
	if episode.AudioFile == "" || episode.AudioURL == "" {
		t.Fatalf("expected audio references, got %+v", episode)
	}

	otherOwner, err := client.EpisodesList("someone-else")
	if err != nil {
		t.Fatalf("EpisodesList filtered failed: %v", err)
	}
	if len(otherOwner.Episodes) != 0 {
		t.Fatalf("expected no episodes for other owner, got %d", len(otherOwner.Episodes))
	}

	describeResp, err := client.EpisodesDescribe(episode.ID)
	if err != nil {
		t.Fatalf("EpisodesDescribe failed: %v", err)
	}
	if describeResp.Episode.ID != episode.ID || describeResp.Episode.JobRef != submitResp.Receipt.JobID {
		t.Fatalf("unexpected episode: %+v", describeResp.Episode)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent || notifyResp.Message != "ntfy topic not configured" {
		t.Fatalf("unexpected notification response: %+v", notifyResp)
	}

	deleteResp, err := client.EpisodesDelete(episode.ID)
	if err != nil {
		t.Fatalf("EpisodesDelete failed: %v", err)
	}
	if !deleteResp.Deleted {
		t.Fatal("expected episode to be deleted")
	}
	if _, statErr := os.Stat(episode.AudioFile); !os.IsNotExist(statErr) {
		t.Fatalf("expected audio artifact removed, stat err=%v", statErr)
	}
	if _, err := client.EpisodesDescribe(episode.ID); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestIPCLogTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenStore(t, cfg)

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

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	logPath := logging.DaemonLogPath(cfg.Paths.LogDir)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail failed: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[0] != "beta" || resp.Lines[1] != "gamma" {
		t.Fatalf("unexpected lines: %#v", resp.Lines)
	}
	if resp.Offset == 0 {
		t.Fatal("expected offset to advance")
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("delta\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	resumed, err := client.LogTail(ipc.LogTailRequest{Offset: resp.Offset})
	if err != nil {
		t.Fatalf("LogTail resume failed: %v", err)
	}
	if len(resumed.Lines) != 1 || resumed.Lines[0] != "delta" {
		t.Fatalf("unexpected resumed lines: %#v", resumed.Lines)
	}
}
