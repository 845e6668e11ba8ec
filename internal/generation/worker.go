package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podforge/internal/artifacts"
	"podforge/internal/config"
	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/fileutil"
	"podforge/internal/logging"
	"podforge/internal/notifications"
	"podforge/internal/profiles"
	"podforge/internal/services"
	"podforge/internal/services/engine"
	"podforge/internal/textutil"
)

// Worker executes generate_podcast jobs. Every invocation produces a
// structured Result, success or not; on failure the error return carries the
// same message so the job record shows both.
type Worker struct {
	cfg       *config.Config
	episodes  *episodes.Store
	profiles  *profiles.Store
	artifacts *artifacts.Store
	engine    engine.Synthesizer
	notifier  notifications.Service
	logger    *slog.Logger
}

// NewWorker wires the execution side of the pipeline.
func NewWorker(cfg *config.Config, episodeStore *episodes.Store, profileStore *profiles.Store, artifactStore *artifacts.Store, synth engine.Synthesizer, notifier notifications.Service, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		episodes:  episodeStore,
		profiles:  profileStore,
		artifacts: artifactStore,
		engine:    synth,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "generation"),
	}
}

// Register binds the worker to the executor registry.
func (w *Worker) Register(registry *executor.Registry) {
	registry.Register(CommandGeneratePodcast, w.Run)
}

// Run is the generate_podcast handler. Stages run linearly; the first one
// that cannot advance terminates the job with a failure result.
func (w *Worker) Run(ctx context.Context, rawPayload json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	logger := logging.WithContext(ctx, w.logger)

	var payload JobPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return w.fail(ctx, logger, start, "", "", fmt.Sprintf("decode job payload: %v", err))
	}
	payload.EpisodeName = strings.TrimSpace(payload.EpisodeName)
	payload.Owner = strings.TrimSpace(payload.Owner)
	if payload.EpisodeName == "" {
		return w.fail(ctx, logger, start, "", "", "job payload has no episode name")
	}
	logger = logger.With(logging.Args(
		logging.String(logging.FieldEpisodeName, payload.EpisodeName),
		logging.String(logging.FieldOwner, payload.Owner),
	)...)

	episodeProfile, speakerProfile, failMsg := w.resolveProfiles(ctx, payload)
	if failMsg != "" {
		return w.fail(ctx, logger, start, "", payload.EpisodeName, failMsg)
	}
	briefing := episodeProfile.ComposeBriefing(payload.BriefingSuffix)
	episodeSnapshot, err := json.Marshal(episodeProfile)
	if err != nil {
		return w.fail(ctx, logger, start, "", payload.EpisodeName, fmt.Sprintf("encode episode profile snapshot: %v", err))
	}
	speakerSnapshot, err := json.Marshal(speakerProfile)
	if err != nil {
		return w.fail(ctx, logger, start, "", payload.EpisodeName, fmt.Sprintf("encode speaker profile snapshot: %v", err))
	}

	episode, err := w.reconcileEpisode(ctx, logger, payload, string(episodeSnapshot), string(speakerSnapshot), briefing)
	if err != nil {
		return w.fail(ctx, logger, start, "", payload.EpisodeName, fmt.Sprintf("persist fallback episode: %v", err))
	}
	logger = logger.With(logging.Args(logging.String(logging.FieldEpisodeID, episode.ID))...)

	stagingDir := w.cfg.EpisodeStagingDir(payload.EpisodeName)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return w.fail(ctx, logger, start, episode.ID, payload.EpisodeName, fmt.Sprintf("create staging directory: %v", err))
	}

	logger.Info("synthesis started")
	resp, err := w.engine.Synthesize(ctx, engine.Request{
		EpisodeName:    payload.EpisodeName,
		Content:        payload.Content,
		Briefing:       briefing,
		EpisodeProfile: episodeSnapshot,
		SpeakerProfile: speakerSnapshot,
		OutputDir:      stagingDir,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, err
		}
		return w.fail(ctx, logger, start, episode.ID, payload.EpisodeName, err.Error())
	}

	audioRef := w.placeArtifact(ctx, logger, episode, payload.EpisodeName, stagingDir, resp)

	episode.AudioRef = audioRef
	if len(resp.Transcript) > 0 {
		episode.Transcript = string(resp.Transcript)
	}
	if len(resp.Outline) > 0 {
		episode.Outline = string(resp.Outline)
	}
	if err := w.episodes.Update(ctx, episode); err != nil {
		// The row can vanish mid-flight when the user deletes the episode;
		// the artifact already landed, so this is not worth failing over.
		logger.Warn("persist generation results failed", logging.Error(err))
	}

	elapsed := time.Since(start)
	logger.Info("generation completed",
		logging.String("audio_ref", audioRef),
		logging.String("tier", textutil.Ternary(artifacts.IsObjectRef(audioRef), "object", "local")),
		logging.Duration("elapsed", elapsed),
	)
	if err := w.notifier.NotifyGenerationCompleted(ctx, payload.EpisodeName, elapsed); err != nil {
		logger.Warn("completion notification not delivered", logging.Error(err))
	}

	return marshalResult(Result{
		Success:        true,
		EpisodeID:      episode.ID,
		AudioFilePath:  audioRef,
		Transcript:     resp.Transcript,
		Outline:        resp.Outline,
		ProcessingTime: elapsed.Seconds(),
	}), nil
}

func (w *Worker) resolveProfiles(ctx context.Context, payload JobPayload) (*profiles.EpisodeProfile, *profiles.SpeakerProfile, string) {
	episodeProfile, err := w.profiles.GetEpisodeProfile(ctx, payload.EpisodeProfile)
	if err != nil {
		return nil, nil, fmt.Sprintf("load episode profile %q: %v", payload.EpisodeProfile, err)
	}
	if episodeProfile == nil {
		return nil, nil, fmt.Sprintf("episode profile %q not found", payload.EpisodeProfile)
	}
	speakerProfile, err := w.profiles.GetSpeakerProfile(ctx, payload.SpeakerProfile)
	if err != nil {
		return nil, nil, fmt.Sprintf("load speaker profile %q: %v", payload.SpeakerProfile, err)
	}
	if speakerProfile == nil {
		return nil, nil, fmt.Sprintf("speaker profile %q not found", payload.SpeakerProfile)
	}
	return episodeProfile, speakerProfile, ""
}

// reconcileEpisode finds the pending episode the submitter created and links
// the current job to it, first writer wins. Falling back to creating the row
// here keeps the job alive when the normal pre-creation is missing, but that
// path is logged loudly because something upstream skipped it.
func (w *Worker) reconcileEpisode(ctx context.Context, logger *slog.Logger, payload JobPayload, episodeSnapshot, speakerSnapshot, briefing string) (*episodes.Episode, error) {
	episode, err := w.episodes.FindByNameOwner(ctx, payload.EpisodeName, payload.Owner)
	if err != nil {
		logger.Warn("episode lookup failed; falling back to creation", logging.Error(err))
		episode = nil
	}
	if episode != nil {
		if !episode.HasJobRef() {
			if jobID, ok := services.JobIDFromContext(ctx); ok {
				claimed, err := w.episodes.ClaimJobRef(ctx, episode.ID, jobID)
				if err != nil {
					logger.Warn("claim job reference failed", logging.Error(err))
				} else if claimed {
					episode.JobRef = jobID
				}
			}
		}
		return episode, nil
	}

	logger.Warn("no pending episode for job; creating fallback record",
		logging.Alert("missing_pending_episode"),
	)
	episode, err = w.episodes.NewPending(ctx, payload.EpisodeName, payload.Owner, episodeSnapshot, speakerSnapshot, briefing, payload.Content)
	if err != nil {
		return nil, err
	}
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		if claimed, err := w.episodes.ClaimJobRef(ctx, episode.ID, jobID); err == nil && claimed {
			episode.JobRef = jobID
		}
	}
	return episode, nil
}

// placeArtifact decides the episode's artifact reference. The engine contract
// fixes the file at <staging>/audio/<name>.mp3; an upload moves it to the
// object tier, otherwise a verified move lands it in the episode library.
// Upload or move trouble keeps whichever local copy survived, and a missing
// file falls back to whatever path the engine reported.
func (w *Worker) placeArtifact(ctx context.Context, logger *slog.Logger, episode *episodes.Episode, episodeName, stagingDir string, resp *engine.Response) string {
	produced := filepath.Join(stagingDir, "audio", episodeName+".mp3")
	final := filepath.Join(w.cfg.EpisodeOutputDir(episodeName), "audio", episodeName+".mp3")

	if _, err := os.Stat(produced); err == nil {
		if w.artifacts.Configured() {
			key := artifacts.BuildKey(episode.Owner, episode.ID, episodeName+".mp3")
			uri, err := w.artifacts.Upload(ctx, produced, key, "audio/mpeg")
			if err == nil {
				w.discardStaging(logger, stagingDir)
				logger.Info("artifact uploaded", logging.String("audio_ref", uri))
				return uri
			}
			logger.Warn("artifact upload failed; keeping local copy",
				logging.Error(err),
				logging.String("local_path", produced),
			)
		}
		if err := fileutil.MoveFileVerified(produced, final); err != nil {
			logger.Warn("artifact placement failed; leaving staging copy",
				logging.Error(err),
				logging.String("staging_path", produced),
			)
			return produced
		}
		w.discardStaging(logger, stagingDir)
		return final
	}

	if override := strings.TrimSpace(resp.AudioPath); override != "" {
		logger.Warn("expected artifact missing; recording engine-reported path",
			logging.String("expected", produced),
			logging.String("reported", override),
		)
		return override
	}
	logger.Warn("expected artifact missing", logging.String("expected", produced))
	return final
}

func (w *Worker) discardStaging(logger *slog.Logger, stagingDir string) {
	if err := os.RemoveAll(stagingDir); err != nil {
		logger.Warn("remove staging directory failed",
			logging.Error(err),
			logging.String("path", stagingDir),
		)
	}
}

func (w *Worker) fail(ctx context.Context, logger *slog.Logger, start time.Time, episodeID, episodeName, message string) (json.RawMessage, error) {
	if hint := remediationHint(message); hint != "" {
		message += hint
	}
	logger.Error("generation failed", logging.String("error_message", message))

	if episodeName != "" {
		if err := w.notifier.NotifyGenerationFailed(ctx, episodeName, message); err != nil {
			logger.Warn("failure notification not delivered", logging.Error(err))
		}
	}

	return marshalResult(Result{
		Success:        false,
		EpisodeID:      episodeID,
		ProcessingTime: time.Since(start).Seconds(),
		ErrorMessage:   message,
	}), errors.New(message)
}

// remediationHint recognizes the empty-engine-output failure class.
// Reasoning models can burn the whole completion budget before emitting
// JSON, which surfaces downstream as these parse errors.
func remediationHint(errText string) string {
	if strings.Contains(errText, "Invalid json output") || strings.Contains(errText, "Expecting value") {
		return " (the model may have returned empty output; configure the profile with a non-reasoning model such as gpt-4o, gpt-4o-mini, or gpt-4-turbo)"
	}
	return ""
}

func marshalResult(result Result) json.RawMessage {
	data, err := json.Marshal(result)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"success":%t,"error_message":%q}`, result.Success, result.ErrorMessage))
	}
	return data
}
