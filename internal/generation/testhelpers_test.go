package generation_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"podforge/internal/artifacts"
	"podforge/internal/config"
	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/generation"
	"podforge/internal/logging"
	"podforge/internal/profiles"
	"podforge/internal/services/engine"
	"podforge/internal/storage"
)

// stubEngine records synthesis requests. The default behavior mimics a
// well-behaved engine: it writes the artifact where the contract says and
// returns transcript and outline payloads.
type stubEngine struct {
	mu       sync.Mutex
	requests []engine.Request
	respond  func(req engine.Request) (*engine.Response, error)
}

func (s *stubEngine) Synthesize(ctx context.Context, req engine.Request) (*engine.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond := s.respond
	s.mu.Unlock()

	if respond != nil {
		return respond(req)
	}

	audioDir := filepath.Join(req.OutputDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, err
	}
	audioPath := filepath.Join(audioDir, req.EpisodeName+".mp3")
	if err := os.WriteFile(audioPath, []byte("ID3 fake audio"), 0o644); err != nil {
		return nil, err
	}
	return &engine.Response{
		AudioPath:  audioPath,
		Transcript: []byte(`{"segments":["hello there"]}`),
		Outline:    []byte(`{"sections":["intro","outro"]}`),
	}, nil
}

func (s *stubEngine) HealthCheck(context.Context) error { return nil }

func (s *stubEngine) lastRequest(t *testing.T) engine.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("engine was never called")
	}
	return s.requests[len(s.requests)-1]
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	failures  []string
}

func (r *recordingNotifier) NotifyGenerationCompleted(_ context.Context, episodeName string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, episodeName)
	return nil
}

func (r *recordingNotifier) NotifyGenerationFailed(_ context.Context, episodeName, errorSummary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, episodeName)
	r.failures = append(r.failures, errorSummary)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) completedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completed)
}

func (r *recordingNotifier) failedSummaries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

type harness struct {
	cfg        *config.Config
	db         *storage.DB
	episodes   *episodes.Store
	profiles   *profiles.Store
	jobs       *executor.Store
	registry   *executor.Registry
	exec       *executor.Executor
	artifacts  *artifacts.Store
	engine     *stubEngine
	notifier   *recordingNotifier
	submitter  *generation.Submitter
	worker     *generation.Worker
	aggregator *generation.Aggregator
}

func clearObjectEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"S3_BUCKET_NAME", "S3_REGION", "S3_ENDPOINT_URL",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clearObjectEnv(t)

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.DBPath = filepath.Join(root, "podforge.db")
	cfg.Paths.SocketPath = filepath.Join(root, "podforged.sock")
	cfg.Executor.RequeueInterval = 1

	db, err := storage.OpenPath(cfg.Paths.DBPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	profileStore := profiles.NewStore(db)
	if err := profileStore.EnsureSeeds(context.Background()); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
	episodeStore := episodes.NewStore(db)
	jobStore := executor.NewStore(db)
	registry := executor.NewRegistry()
	exec := executor.New(&cfg, jobStore, registry, logging.NewNop())

	artifactStore := artifacts.NewStore(&cfg, logging.NewNop())
	stubEng := &stubEngine{}
	notifier := &recordingNotifier{}

	worker := generation.NewWorker(&cfg, episodeStore, profileStore, artifactStore, stubEng, notifier, logging.NewNop())
	worker.Register(registry)

	return &harness{
		cfg:        &cfg,
		db:         db,
		episodes:   episodeStore,
		profiles:   profileStore,
		jobs:       jobStore,
		registry:   registry,
		exec:       exec,
		artifacts:  artifactStore,
		engine:     stubEng,
		notifier:   notifier,
		submitter:  generation.NewSubmitter(episodeStore, profileStore, exec, logging.NewNop()),
		worker:     worker,
		aggregator: generation.NewAggregator(exec, logging.NewNop()),
	}
}

func (h *harness) waitForJob(t *testing.T, jobID string, want executor.Status) *executor.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.jobs.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
	return nil
}

func (h *harness) mustFindEpisode(t *testing.T, name, owner string) *episodes.Episode {
	t.Helper()
	episode, err := h.episodes.FindByNameOwner(context.Background(), name, owner)
	if err != nil {
		t.Fatalf("find episode: %v", err)
	}
	if episode == nil {
		t.Fatalf("episode %s/%s not found", owner, name)
	}
	return episode
}

func payloadJSON(t *testing.T, payload generation.JobPayload) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}
