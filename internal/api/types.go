package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultOwner is assigned to submissions that arrive without an owner.
// Transports with no user identity (token auth, local CLI) all map to it.
const DefaultOwner = "local"

// Episode describes a generation target in a transport-friendly format.
type Episode struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Owner          string          `json:"owner"`
	EpisodeProfile json.RawMessage `json:"episode_profile,omitempty"`
	SpeakerProfile json.RawMessage `json:"speaker_profile,omitempty"`
	Briefing       string          `json:"briefing,omitempty"`
	JobRef         string          `json:"job_ref,omitempty"`
	AudioFile      string          `json:"audio_file,omitempty"`
	AudioURL       string          `json:"audio_url,omitempty"`
	DownloadURL    string          `json:"download_url,omitempty"`
	Transcript     json.RawMessage `json:"transcript,omitempty"`
	Outline        json.RawMessage `json:"outline,omitempty"`
	Created        string          `json:"created,omitempty"`
	Updated        string          `json:"updated,omitempty"`
	JobStatus      string          `json:"job_status"`
}

// JobStatus describes a generation job record and its executor state.
type JobStatus struct {
	JobID        string          `json:"job_id"`
	Command      string          `json:"command"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Created      string          `json:"created,omitempty"`
	Updated      string          `json:"updated,omitempty"`
	Started      string          `json:"started,omitempty"`
	Finished     string          `json:"finished,omitempty"`
}

// SubmitGenerationRequest carries the submission parameters accepted by every
// transport. Profiles are referenced by name and resolved server-side.
type SubmitGenerationRequest struct {
	EpisodeProfile string `json:"episode_profile"`
	SpeakerProfile string `json:"speaker_profile"`
	EpisodeName    string `json:"episode_name"`
	Content        string `json:"content"`
	BriefingSuffix string `json:"briefing_suffix,omitempty"`
	Owner          string `json:"owner,omitempty"`
}

// GenerationReceipt acknowledges an accepted submission.
type GenerationReceipt struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	Message        string `json:"message"`
	EpisodeProfile string `json:"episode_profile"`
	EpisodeName    string `json:"episode_name"`
}

// DeleteReceipt confirms an episode deletion.
type DeleteReceipt struct {
	Message   string `json:"message"`
	EpisodeID string `json:"episode_id"`
}

// EngineHealth reports reachability of the synthesis engine.
type EngineHealth struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queue_db_path"`
	LockFilePath string         `json:"lock_file_path"`
	SocketPath   string         `json:"socket_path,omitempty"`
	JobStats     map[string]int `json:"job_stats,omitempty"`
	Engine       EngineHealth   `json:"engine"`
	LastError    string         `json:"last_error,omitempty"`
}

// StatusLine is a single labeled readiness row for status output. Severity is
// one of "ok", "info", "warn", or "error".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}
