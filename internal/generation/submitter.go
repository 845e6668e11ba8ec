package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/logging"
	"podforge/internal/profiles"
	"podforge/internal/services"
)

// SubmitRequest describes one generation request as it arrives from a
// client surface.
type SubmitRequest struct {
	EpisodeProfile string
	SpeakerProfile string
	EpisodeName    string
	Content        string
	BriefingSuffix string
	Owner          string
}

func (r *SubmitRequest) normalize() {
	r.EpisodeProfile = strings.TrimSpace(r.EpisodeProfile)
	r.SpeakerProfile = strings.TrimSpace(r.SpeakerProfile)
	r.EpisodeName = strings.TrimSpace(r.EpisodeName)
	r.BriefingSuffix = strings.TrimSpace(r.BriefingSuffix)
	r.Owner = strings.TrimSpace(r.Owner)
}

// Submitter validates generation requests and hands them to the executor.
type Submitter struct {
	episodes *episodes.Store
	profiles *profiles.Store
	exec     *executor.Executor
	logger   *slog.Logger
}

// NewSubmitter wires the submission side of the pipeline.
func NewSubmitter(episodeStore *episodes.Store, profileStore *profiles.Store, exec *executor.Executor, logger *slog.Logger) *Submitter {
	return &Submitter{
		episodes: episodeStore,
		profiles: profileStore,
		exec:     exec,
		logger:   logging.NewComponentLogger(logger, "generation"),
	}
}

// Submit resolves profiles, persists a pending episode, and queues the
// generation job. The episode row is written BEFORE the job is submitted so
// the worker can always find it by (name, owner); the job id is deliberately
// not attached here. Returns the executor job id.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	req.normalize()
	if req.EpisodeName == "" {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "episode name is required", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "content is required", nil)
	}
	if req.EpisodeProfile == "" || req.SpeakerProfile == "" {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "episode and speaker profile names are required", nil)
	}
	if req.Owner == "" {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "owner is required", nil)
	}

	episodeProfile, err := s.profiles.GetEpisodeProfile(ctx, req.EpisodeProfile)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "generation", "submit", "load episode profile", err)
	}
	if episodeProfile == nil {
		return "", services.Wrap(services.ErrNotFound, "generation", "submit", fmt.Sprintf("episode profile %q not found", req.EpisodeProfile), nil)
	}
	speakerProfile, err := s.profiles.GetSpeakerProfile(ctx, req.SpeakerProfile)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "generation", "submit", "load speaker profile", err)
	}
	if speakerProfile == nil {
		return "", services.Wrap(services.ErrNotFound, "generation", "submit", fmt.Sprintf("speaker profile %q not found", req.SpeakerProfile), nil)
	}

	briefing := episodeProfile.ComposeBriefing(req.BriefingSuffix)
	episodeSnapshot, err := json.Marshal(episodeProfile)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "encode episode profile snapshot", err)
	}
	speakerSnapshot, err := json.Marshal(speakerProfile)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "encode speaker profile snapshot", err)
	}

	episode, err := s.episodes.NewPending(ctx, req.EpisodeName, req.Owner, string(episodeSnapshot), string(speakerSnapshot), briefing, req.Content)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "generation", "submit", "persist pending episode", err)
	}

	payload, err := json.Marshal(JobPayload{
		EpisodeProfile: req.EpisodeProfile,
		SpeakerProfile: req.SpeakerProfile,
		EpisodeName:    req.EpisodeName,
		Content:        req.Content,
		BriefingSuffix: req.BriefingSuffix,
		Owner:          req.Owner,
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "generation", "submit", "encode job payload", err)
	}

	jobID, err := s.exec.Submit(ctx, CommandGeneratePodcast, payload)
	if err != nil {
		// The pending row stays behind as an inspectable record of the attempt.
		s.logger.Warn("job submission failed after episode creation",
			logging.Error(err),
			logging.String(logging.FieldEpisodeID, episode.ID),
			logging.String(logging.FieldEpisodeName, episode.Name),
		)
		return "", err
	}

	s.logger.Info("generation submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEpisodeID, episode.ID),
		logging.String(logging.FieldEpisodeName, episode.Name),
		logging.String(logging.FieldOwner, episode.Owner),
	)
	return jobID, nil
}
