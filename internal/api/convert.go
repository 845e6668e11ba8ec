package api

import (
	"encoding/json"
	"strings"
	"time"

	"podforge/internal/episodes"
	"podforge/internal/executor"
)

// AudioEndpoint returns the HTTP path that streams an episode's artifact.
// Clients always go through this endpoint; it hides the storage tier.
func AudioEndpoint(episodeID string) string {
	return "/api/podcasts/episodes/" + episodeID + "/audio"
}

// FromEpisode converts an episode record to its API representation. The
// derived status comes from the caller because it requires an executor
// lookup.
func FromEpisode(ep *episodes.Episode, status string) Episode {
	if ep == nil {
		return Episode{}
	}
	dto := Episode{
		ID:        ep.ID,
		Name:      ep.Name,
		Owner:     ep.Owner,
		Briefing:  ep.Briefing,
		JobRef:    ep.JobRef,
		AudioFile: ep.AudioRef,
		JobStatus: status,
		Created:   FormatTime(ep.CreatedAt),
		Updated:   FormatTime(ep.UpdatedAt),
	}
	if raw := strings.TrimSpace(ep.EpisodeProfile); raw != "" {
		dto.EpisodeProfile = json.RawMessage(raw)
	}
	if raw := strings.TrimSpace(ep.SpeakerProfile); raw != "" {
		dto.SpeakerProfile = json.RawMessage(raw)
	}
	if raw := strings.TrimSpace(ep.Transcript); raw != "" {
		dto.Transcript = json.RawMessage(raw)
	}
	if raw := strings.TrimSpace(ep.Outline); raw != "" {
		dto.Outline = json.RawMessage(raw)
	}
	if ep.HasAudio() {
		dto.AudioURL = AudioEndpoint(ep.ID)
	}
	return dto
}

// FromJob converts an executor job record to its API representation.
func FromJob(job *executor.Job) JobStatus {
	if job == nil {
		return JobStatus{}
	}
	dto := JobStatus{
		JobID:        job.ID,
		Command:      job.Command,
		Status:       string(job.Status),
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		Created:      FormatTime(job.CreatedAt),
		Updated:      FormatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.Started = FormatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.Finished = FormatTime(*job.FinishedAt)
	}
	return dto
}

// MergeJobStats produces a string-keyed representation of job stats.
func MergeJobStats(stats map[executor.Status]int) map[string]int {
	if len(stats) == 0 {
		return nil
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
