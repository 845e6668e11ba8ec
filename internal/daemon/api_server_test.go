package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podforge/internal/api"
	"podforge/internal/artifacts"
	"podforge/internal/config"
	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/generation"
	"podforge/internal/logging"
	"podforge/internal/services"
)

type episodeStoreStub struct {
	records []*episodes.Episode
	removed []string
}

func (s *episodeStoreStub) GetByID(_ context.Context, id string) (*episodes.Episode, error) {
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, nil
}

func (s *episodeStoreStub) List(context.Context) ([]*episodes.Episode, error) {
	return s.records, nil
}

func (s *episodeStoreStub) ListByOwner(_ context.Context, owner string) ([]*episodes.Episode, error) {
	var out []*episodes.Episode
	for _, record := range s.records {
		if record.Owner == owner {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *episodeStoreStub) Remove(_ context.Context, id string) (bool, error) {
	for i, record := range s.records {
		if record.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.removed = append(s.removed, id)
			return true, nil
		}
	}
	return false, nil
}

type statusStub struct{}

func (statusStub) Status(_ context.Context, episode *episodes.Episode) string {
	if episode.HasAudio() {
		return "completed"
	}
	return "pending"
}

type submitterStub struct {
	jobID string
	err   error
	req   generation.SubmitRequest
}

func (s *submitterStub) Submit(_ context.Context, req generation.SubmitRequest) (string, error) {
	s.req = req
	if s.err != nil {
		return "", s.err
	}
	return s.jobID, nil
}

type jobReaderStub struct {
	job *executor.Job
	err error
}

func (s *jobReaderStub) Get(context.Context, string) (*executor.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

func TestAPIServerHandleEpisodes(t *testing.T) {
	store := &episodeStoreStub{records: []*episodes.Episode{
		{ID: "ep-1", Name: "daily", Owner: "local", AudioRef: "/tmp/daily.mp3"},
	}}
	srv := &apiServer{episodeSvc: api.NewEpisodeService(store, statusStub{}, nil)}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/episodes", nil)
	w := httptest.NewRecorder()
	srv.handleEpisodes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp []api.Episode
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(resp))
	}
	if resp[0].Name != "daily" || resp[0].JobStatus != "completed" {
		t.Fatalf("unexpected episode: %+v", resp[0])
	}
	if resp[0].AudioURL != "/api/podcasts/episodes/ep-1/audio" {
		t.Fatalf("unexpected audio url: %q", resp[0].AudioURL)
	}
}

func TestAPIServerHandleEpisodesEmptyList(t *testing.T) {
	srv := &apiServer{episodeSvc: api.NewEpisodeService(&episodeStoreStub{}, statusStub{}, nil)}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/episodes", nil)
	w := httptest.NewRecorder()
	srv.handleEpisodes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestAPIServerHandleGenerate(t *testing.T) {
	submitter := &submitterStub{jobID: "job-123"}
	srv := &apiServer{genSvc: api.NewGenerationService(submitter, &jobReaderStub{})}

	body := `{"episode_profile":"tech_news","speaker_profile":"solo_host","episode_name":"daily","content":"today in tech"}`
	req := httptest.NewRequest(http.MethodPost, "/api/podcasts/generate", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleGenerate(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d (%s)", w.Code, w.Body.String())
	}
	var receipt api.GenerationReceipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	if receipt.JobID != "job-123" || receipt.Status != "submitted" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if submitter.req.Owner != api.DefaultOwner {
		t.Fatalf("expected default owner, got %q", submitter.req.Owner)
	}
}

func TestAPIServerHandleGenerateValidationError(t *testing.T) {
	submitter := &submitterStub{err: services.Wrap(services.ErrValidation, "generation", "submit", "content is required", nil)}
	srv := &apiServer{genSvc: api.NewGenerationService(submitter, &jobReaderStub{})}

	req := httptest.NewRequest(http.MethodPost, "/api/podcasts/generate", strings.NewReader(`{"episode_name":"daily"}`))
	w := httptest.NewRecorder()
	srv.handleGenerate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerHandleGenerateRejectsBadJSON(t *testing.T) {
	srv := &apiServer{genSvc: api.NewGenerationService(&submitterStub{jobID: "job-1"}, nil)}

	req := httptest.NewRequest(http.MethodPost, "/api/podcasts/generate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.handleGenerate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerHandleJobNotFound(t *testing.T) {
	reader := &jobReaderStub{err: services.Wrap(services.ErrNotFound, "executor", "get", "job missing not found", nil)}
	srv := &apiServer{genSvc: api.NewGenerationService(&submitterStub{}, reader)}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/jobs/missing", nil)
	w := httptest.NewRecorder()
	srv.handleJob(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPIServerHandleJob(t *testing.T) {
	started := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)
	reader := &jobReaderStub{job: &executor.Job{
		ID:        "job-9",
		Command:   "generate_podcast",
		Status:    executor.StatusRunning,
		CreatedAt: started,
		UpdatedAt: started,
		StartedAt: &started,
	}}
	srv := &apiServer{genSvc: api.NewGenerationService(&submitterStub{}, reader)}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/jobs/job-9", nil)
	w := httptest.NewRecorder()
	srv.handleJob(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status api.JobStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode job status: %v", err)
	}
	if status.JobID != "job-9" || status.Status != string(executor.StatusRunning) {
		t.Fatalf("unexpected job status: %+v", status)
	}
}

func TestAPIServerDeleteEpisode(t *testing.T) {
	store := &episodeStoreStub{records: []*episodes.Episode{{ID: "ep-del", Name: "old"}}}
	srv := &apiServer{episodeSvc: api.NewEpisodeService(store, statusStub{}, nil)}

	req := httptest.NewRequest(http.MethodDelete, "/api/podcasts/episodes/ep-del", nil)
	w := httptest.NewRecorder()
	srv.handleEpisodeItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var receipt api.DeleteReceipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	if receipt.EpisodeID != "ep-del" || receipt.Message != "Episode deleted successfully" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if len(store.removed) != 1 || store.removed[0] != "ep-del" {
		t.Fatalf("expected store removal, got %v", store.removed)
	}
}

func TestAPIServerServeAudioFromLocalTier(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "daily.mp3")
	if err := os.WriteFile(audioPath, []byte("ID3 fake audio"), 0o644); err != nil {
		t.Fatalf("write audio fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.DataDir = dir
	store := &episodeStoreStub{records: []*episodes.Episode{
		{ID: "ep-audio", Name: "daily", AudioRef: audioPath},
	}}
	srv := &apiServer{
		episodeSvc: api.NewEpisodeService(store, statusStub{}, nil),
		artifacts:  artifacts.NewStore(&cfg, logging.NewNop()),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/episodes/ep-audio/audio", nil)
	w := httptest.NewRecorder()
	srv.handleEpisodeItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "daily.mp3") {
		t.Fatalf("unexpected disposition: %q", w.Header().Get("Content-Disposition"))
	}
	if w.Body.String() != "ID3 fake audio" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestAPIServerServeAudioMissingArtifact(t *testing.T) {
	store := &episodeStoreStub{records: []*episodes.Episode{
		{ID: "ep-noaudio", Name: "draft"},
	}}
	srv := &apiServer{episodeSvc: api.NewEpisodeService(store, statusStub{}, nil)}

	req := httptest.NewRequest(http.MethodGet, "/api/podcasts/episodes/ep-noaudio/audio", nil)
	w := httptest.NewRecorder()
	srv.handleEpisodeItem(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no audio file") {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through with valid token, got %d", w.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	open(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through without configured token, got %d", w.Code)
	}
}
