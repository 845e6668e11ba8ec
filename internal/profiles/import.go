package profiles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"podforge/internal/services"
)

// ImportResult reports how many profiles an import touched.
type ImportResult struct {
	EpisodeProfiles int
	SpeakerProfiles int
}

// ImportFile reads a TOML profile bundle and upserts every profile in it.
// The file uses the same shape as the embedded seeds: [[episode_profiles]]
// and [[speaker_profiles]] tables.
func (s *Store) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	var result ImportResult

	data, err := os.ReadFile(path)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "profiles", "import", "read profile file", err)
	}

	var file profileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return result, services.Wrap(services.ErrValidation, "profiles", "import", "parse profile file", err)
	}
	if len(file.EpisodeProfiles) == 0 && len(file.SpeakerProfiles) == 0 {
		return result, services.Wrap(services.ErrValidation, "profiles", "import", "no profiles in file", errors.New("empty bundle"))
	}

	for i := range file.EpisodeProfiles {
		profile := file.EpisodeProfiles[i]
		if err := s.UpsertEpisodeProfile(ctx, &profile); err != nil {
			return result, err
		}
		result.EpisodeProfiles++
	}
	for i := range file.SpeakerProfiles {
		profile := file.SpeakerProfiles[i]
		if err := s.UpsertSpeakerProfile(ctx, &profile); err != nil {
			return result, err
		}
		result.SpeakerProfiles++
	}
	return result, nil
}

func validateEpisodeProfile(profile *EpisodeProfile) error {
	if profile == nil {
		return services.Wrap(services.ErrValidation, "profiles", "validate", "episode profile is nil", errors.New("nil profile"))
	}
	var problems []string
	if strings.TrimSpace(profile.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(profile.Briefing) == "" {
		problems = append(problems, "briefing is required")
	}
	if strings.TrimSpace(profile.OutlineProvider) == "" || strings.TrimSpace(profile.OutlineModel) == "" {
		problems = append(problems, "outline provider and model are required")
	}
	if strings.TrimSpace(profile.TranscriptProvider) == "" || strings.TrimSpace(profile.TranscriptModel) == "" {
		problems = append(problems, "transcript provider and model are required")
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "profiles", "validate",
			fmt.Sprintf("episode profile %q", profile.Name), errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func validateSpeakerProfile(profile *SpeakerProfile) error {
	if profile == nil {
		return services.Wrap(services.ErrValidation, "profiles", "validate", "speaker profile is nil", errors.New("nil profile"))
	}
	var problems []string
	if strings.TrimSpace(profile.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(profile.TTSProvider) == "" || strings.TrimSpace(profile.TTSModel) == "" {
		problems = append(problems, "tts provider and model are required")
	}
	if len(profile.Speakers) == 0 {
		problems = append(problems, "at least one speaker is required")
	}
	for i, speaker := range profile.Speakers {
		if strings.TrimSpace(speaker.Name) == "" || strings.TrimSpace(speaker.VoiceID) == "" {
			problems = append(problems, fmt.Sprintf("speaker %d needs name and voice_id", i+1))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "profiles", "validate",
			fmt.Sprintf("speaker profile %q", profile.Name), errors.New(strings.Join(problems, "; ")))
	}
	return nil
}
