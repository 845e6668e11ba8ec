package profiles

import "strings"

// EpisodeProfile selects the models and default briefing for one episode
// format. Name is unique per variant.
type EpisodeProfile struct {
	Name                  string `json:"name" toml:"name"`
	Description           string `json:"description,omitempty" toml:"description"`
	Briefing              string `json:"briefing" toml:"briefing"`
	OutlineProvider       string `json:"outline_provider" toml:"outline_provider"`
	OutlineModel          string `json:"outline_model" toml:"outline_model"`
	TranscriptProvider    string `json:"transcript_provider" toml:"transcript_provider"`
	TranscriptModel       string `json:"transcript_model" toml:"transcript_model"`
	NumSegments           int    `json:"num_segments" toml:"num_segments"`
	DefaultBriefingSuffix string `json:"default_briefing_suffix,omitempty" toml:"default_briefing_suffix"`
}

// ComposeBriefing combines the profile briefing with additional
// instructions. An explicit suffix wins over the profile's default suffix;
// when both are empty the base briefing is returned unchanged.
func (p *EpisodeProfile) ComposeBriefing(suffix string) string {
	base := strings.TrimSpace(p.Briefing)
	chosen := strings.TrimSpace(suffix)
	if chosen == "" {
		chosen = strings.TrimSpace(p.DefaultBriefingSuffix)
	}
	if chosen == "" {
		return base
	}
	return base + "\n\nAdditional instructions: " + chosen
}

// Speaker is one voice in a speaker profile cast.
type Speaker struct {
	Name        string `json:"name" toml:"name"`
	VoiceID     string `json:"voice_id" toml:"voice_id"`
	Backstory   string `json:"backstory,omitempty" toml:"backstory"`
	Personality string `json:"personality,omitempty" toml:"personality"`
}

// SpeakerProfile selects the TTS provider, model, and cast for synthesis.
type SpeakerProfile struct {
	Name        string    `json:"name" toml:"name"`
	Description string    `json:"description,omitempty" toml:"description"`
	TTSProvider string    `json:"tts_provider" toml:"tts_provider"`
	TTSModel    string    `json:"tts_model" toml:"tts_model"`
	Speakers    []Speaker `json:"speakers" toml:"speakers"`
}
