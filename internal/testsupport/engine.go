package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// StubEngine emulates the synthesis engine over HTTP. The health endpoint
// reports healthy and synthesize calls fabricate an audio artifact at the
// location the worker expects, so generation runs complete end to end.
type StubEngine struct {
	URL string

	srv *httptest.Server

	mu          sync.Mutex
	synthesized []string
	failWith    int
}

// NewStubEngine starts a stub engine and registers cleanup.
func NewStubEngine(t testing.TB) *StubEngine {
	t.Helper()

	engine := &StubEngine{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/v1/synthesize", engine.handleSynthesize)

	engine.srv = httptest.NewServer(mux)
	engine.URL = engine.srv.URL
	t.Cleanup(engine.srv.Close)
	return engine
}

// FailNextWith makes subsequent synthesize calls return the given HTTP
// status instead of producing audio.
func (e *StubEngine) FailNextWith(status int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failWith = status
}

// Synthesized returns the episode names synthesized so far.
func (e *StubEngine) Synthesized() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.synthesized...)
}

func (e *StubEngine) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EpisodeName string `json:"episode_name"`
		OutputDir   string `json:"output_dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	failWith := e.failWith
	if failWith == 0 {
		e.synthesized = append(e.synthesized, req.EpisodeName)
	}
	e.mu.Unlock()
	if failWith != 0 {
		http.Error(w, `{"error":"synthesis unavailable"}`, failWith)
		return
	}

	audioPath := filepath.Join(req.OutputDir, "audio", req.EpisodeName+".mp3")
	if err := os.MkdirAll(filepath.Dir(audioPath), 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(audioPath, []byte("ID3 stub audio"), 0o644); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"audio_path": audioPath,
		"transcript": []map[string]string{{"speaker": "Host", "text": "stub line"}},
		"outline":    map[string]any{"segments": []string{"intro", "body", "outro"}},
	})
}
