package generation

import "encoding/json"

// CommandGeneratePodcast is the registry name the worker is bound to.
const CommandGeneratePodcast = "generate_podcast"

// JobPayload travels through the executor from Submitter to Worker. Profiles
// are referenced by name; the worker re-resolves them so a profile edited
// between submission and execution is picked up consistently.
type JobPayload struct {
	EpisodeProfile string `json:"episode_profile"`
	SpeakerProfile string `json:"speaker_profile"`
	EpisodeName    string `json:"episode_name"`
	Content        string `json:"content"`
	BriefingSuffix string `json:"briefing_suffix,omitempty"`
	Owner          string `json:"owner"`
}

// Result is the structured terminal payload every generation job produces,
// success or not.
type Result struct {
	Success        bool            `json:"success"`
	EpisodeID      string          `json:"episode_id,omitempty"`
	AudioFilePath  string          `json:"audio_file_path,omitempty"`
	Transcript     json.RawMessage `json:"transcript,omitempty"`
	Outline        json.RawMessage `json:"outline,omitempty"`
	ProcessingTime float64         `json:"processing_time"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}
