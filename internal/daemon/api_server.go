package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"podforge/internal/api"
	"podforge/internal/artifacts"
	"podforge/internal/config"
	"podforge/internal/logging"
	"podforge/internal/services"
)

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	episodeSvc *api.EpisodeService
	genSvc     *api.GenerationService
	artifacts  *artifacts.Store

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:       bind,
		logger:     logger,
		daemon:     d,
		episodeSvc: d.episodeSvc,
		genSvc:     d.generationSvc,
		artifacts:  d.artifacts,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/podcasts/generate", authMiddleware(token, srv.handleGenerate))
	mux.HandleFunc("/api/podcasts/jobs/", authMiddleware(token, srv.handleJob))
	mux.HandleFunc("/api/podcasts/episodes", authMiddleware(token, srv.handleEpisodes))
	mux.HandleFunc("/api/podcasts/episodes/", authMiddleware(token, srv.handleEpisodeItem))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.SubmitGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	receipt, err := s.genSvc.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, receipt)
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/podcasts/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.genSvc.JobStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	episodes, err := s.episodeSvc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("owner")))
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, episodes)
}

func (s *apiServer) handleEpisodeItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/podcasts/episodes/")
	wantAudio := false
	if trimmed := strings.TrimSuffix(id, "/audio"); trimmed != id {
		id = trimmed
		wantAudio = true
	}
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "episode not found")
		return
	}

	switch {
	case wantAudio:
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.serveAudio(w, r, id)
	case r.Method == http.MethodGet:
		episode, err := s.episodeSvc.Describe(r.Context(), id)
		if err != nil {
			s.writeError(w, services.HTTPStatus(err), err.Error())
			return
		}
		if episode == nil {
			s.writeError(w, http.StatusNotFound, "episode not found")
			return
		}
		s.writeJSON(w, http.StatusOK, episode)
	case r.Method == http.MethodDelete:
		deleted, err := s.episodeSvc.Delete(r.Context(), id)
		if err != nil {
			s.writeError(w, services.HTTPStatus(err), err.Error())
			return
		}
		if !deleted {
			s.writeError(w, http.StatusNotFound, "episode not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.DeleteReceipt{
			Message:   "Episode deleted successfully",
			EpisodeID: id,
		})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// serveAudio streams episode audio regardless of which tier holds it. Object
// store artifacts are staged to a temporary file that is removed once the
// response completes.
func (s *apiServer) serveAudio(w http.ResponseWriter, r *http.Request, id string) {
	episode, err := s.episodeSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	if episode == nil {
		s.writeError(w, http.StatusNotFound, "episode not found")
		return
	}
	if strings.TrimSpace(episode.AudioFile) == "" {
		s.writeError(w, http.StatusNotFound, "Episode has no audio file")
		return
	}

	stream, err := s.artifacts.RetrieveForStreaming(r.Context(), episode.AudioFile)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			s.log().Warn("failed to close audio stream", logging.Error(closeErr))
		}
	}()

	filename := episode.Name + ".mp3"
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, stream.ModTime, stream.Reader())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
