package profiles

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"podforge/internal/storage"
)

//go:embed seeds.toml
var seedProfiles []byte

// Store manages profile persistence backed by the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// profileFile is the TOML shape shared by the embedded seeds and imports.
type profileFile struct {
	EpisodeProfiles []EpisodeProfile `toml:"episode_profiles"`
	SpeakerProfiles []SpeakerProfile `toml:"speaker_profiles"`
}

// EnsureSeeds inserts the embedded starter profiles, skipping names that
// already exist so user edits survive restarts.
func (s *Store) EnsureSeeds(ctx context.Context) error {
	var file profileFile
	if err := toml.Unmarshal(seedProfiles, &file); err != nil {
		return fmt.Errorf("parse embedded profiles: %w", err)
	}

	for i := range file.EpisodeProfiles {
		profile := file.EpisodeProfiles[i]
		applyEpisodeDefaults(&profile)
		if err := s.db.ExecRetryNoResult(
			ctx,
			`INSERT OR IGNORE INTO episode_profiles (
                name, description, briefing, outline_provider, outline_model,
                transcript_provider, transcript_model, num_segments, default_briefing_suffix
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			episodeProfileArgs(&profile)...,
		); err != nil {
			return fmt.Errorf("seed episode profile %q: %w", profile.Name, err)
		}
	}

	for i := range file.SpeakerProfiles {
		profile := file.SpeakerProfiles[i]
		speakers, err := json.Marshal(profile.Speakers)
		if err != nil {
			return fmt.Errorf("marshal speakers for %q: %w", profile.Name, err)
		}
		if err := s.db.ExecRetryNoResult(
			ctx,
			`INSERT OR IGNORE INTO speaker_profiles (name, description, tts_provider, tts_model, speakers)
             VALUES (?, ?, ?, ?, ?)`,
			profile.Name,
			storage.NullableString(profile.Description),
			profile.TTSProvider,
			profile.TTSModel,
			string(speakers),
		); err != nil {
			return fmt.Errorf("seed speaker profile %q: %w", profile.Name, err)
		}
	}
	return nil
}

// GetEpisodeProfile fetches an episode profile by name. Returns nil when absent.
func (s *Store) GetEpisodeProfile(ctx context.Context, name string) (*EpisodeProfile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, description, briefing, outline_provider, outline_model,
                transcript_provider, transcript_model, num_segments, default_briefing_suffix
         FROM episode_profiles WHERE name = ?`,
		name,
	)
	profile, err := scanEpisodeProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode profile: %w", err)
	}
	return profile, nil
}

// GetSpeakerProfile fetches a speaker profile by name. Returns nil when absent.
func (s *Store) GetSpeakerProfile(ctx context.Context, name string) (*SpeakerProfile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, description, tts_provider, tts_model, speakers FROM speaker_profiles WHERE name = ?`,
		name,
	)
	profile, err := scanSpeakerProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get speaker profile: %w", err)
	}
	return profile, nil
}

// ListEpisodeProfiles returns all episode profiles ordered by name.
func (s *Store) ListEpisodeProfiles(ctx context.Context) ([]*EpisodeProfile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, description, briefing, outline_provider, outline_model,
                transcript_provider, transcript_model, num_segments, default_briefing_suffix
         FROM episode_profiles ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list episode profiles: %w", err)
	}
	defer rows.Close()

	var list []*EpisodeProfile
	for rows.Next() {
		profile, err := scanEpisodeProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, profile)
	}
	return list, rows.Err()
}

// ListSpeakerProfiles returns all speaker profiles ordered by name.
func (s *Store) ListSpeakerProfiles(ctx context.Context) ([]*SpeakerProfile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, description, tts_provider, tts_model, speakers FROM speaker_profiles ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list speaker profiles: %w", err)
	}
	defer rows.Close()

	var list []*SpeakerProfile
	for rows.Next() {
		profile, err := scanSpeakerProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, profile)
	}
	return list, rows.Err()
}

// UpsertEpisodeProfile inserts or replaces an episode profile by name.
func (s *Store) UpsertEpisodeProfile(ctx context.Context, profile *EpisodeProfile) error {
	if err := validateEpisodeProfile(profile); err != nil {
		return err
	}
	applyEpisodeDefaults(profile)
	if err := s.db.ExecRetryNoResult(
		ctx,
		`INSERT INTO episode_profiles (
            name, description, briefing, outline_provider, outline_model,
            transcript_provider, transcript_model, num_segments, default_briefing_suffix
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            description = excluded.description,
            briefing = excluded.briefing,
            outline_provider = excluded.outline_provider,
            outline_model = excluded.outline_model,
            transcript_provider = excluded.transcript_provider,
            transcript_model = excluded.transcript_model,
            num_segments = excluded.num_segments,
            default_briefing_suffix = excluded.default_briefing_suffix`,
		episodeProfileArgs(profile)...,
	); err != nil {
		return fmt.Errorf("upsert episode profile %q: %w", profile.Name, err)
	}
	return nil
}

// UpsertSpeakerProfile inserts or replaces a speaker profile by name.
func (s *Store) UpsertSpeakerProfile(ctx context.Context, profile *SpeakerProfile) error {
	if err := validateSpeakerProfile(profile); err != nil {
		return err
	}
	speakers, err := json.Marshal(profile.Speakers)
	if err != nil {
		return fmt.Errorf("marshal speakers for %q: %w", profile.Name, err)
	}
	if err := s.db.ExecRetryNoResult(
		ctx,
		`INSERT INTO speaker_profiles (name, description, tts_provider, tts_model, speakers)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
            description = excluded.description,
            tts_provider = excluded.tts_provider,
            tts_model = excluded.tts_model,
            speakers = excluded.speakers`,
		profile.Name,
		storage.NullableString(profile.Description),
		profile.TTSProvider,
		profile.TTSModel,
		string(speakers),
	); err != nil {
		return fmt.Errorf("upsert speaker profile %q: %w", profile.Name, err)
	}
	return nil
}

func episodeProfileArgs(profile *EpisodeProfile) []any {
	return []any{
		profile.Name,
		storage.NullableString(profile.Description),
		profile.Briefing,
		profile.OutlineProvider,
		profile.OutlineModel,
		profile.TranscriptProvider,
		profile.TranscriptModel,
		profile.NumSegments,
		storage.NullableString(profile.DefaultBriefingSuffix),
	}
}

func applyEpisodeDefaults(profile *EpisodeProfile) {
	if profile.NumSegments <= 0 {
		profile.NumSegments = 3
	}
}

func scanEpisodeProfile(scanner interface{ Scan(dest ...any) error }) (*EpisodeProfile, error) {
	var (
		name               string
		description        sql.NullString
		briefing           string
		outlineProvider    string
		outlineModel       string
		transcriptProvider string
		transcriptModel    string
		numSegments        int
		briefingSuffix     sql.NullString
	)
	if err := scanner.Scan(
		&name,
		&description,
		&briefing,
		&outlineProvider,
		&outlineModel,
		&transcriptProvider,
		&transcriptModel,
		&numSegments,
		&briefingSuffix,
	); err != nil {
		return nil, err
	}
	return &EpisodeProfile{
		Name:                  name,
		Description:           description.String,
		Briefing:              briefing,
		OutlineProvider:       outlineProvider,
		OutlineModel:          outlineModel,
		TranscriptProvider:    transcriptProvider,
		TranscriptModel:       transcriptModel,
		NumSegments:           numSegments,
		DefaultBriefingSuffix: briefingSuffix.String,
	}, nil
}

func scanSpeakerProfile(scanner interface{ Scan(dest ...any) error }) (*SpeakerProfile, error) {
	var (
		name        string
		description sql.NullString
		ttsProvider string
		ttsModel    string
		speakersRaw string
	)
	if err := scanner.Scan(&name, &description, &ttsProvider, &ttsModel, &speakersRaw); err != nil {
		return nil, err
	}
	profile := &SpeakerProfile{
		Name:        name,
		Description: description.String,
		TTSProvider: ttsProvider,
		TTSModel:    ttsModel,
	}
	if speakersRaw != "" {
		if err := json.Unmarshal([]byte(speakersRaw), &profile.Speakers); err != nil {
			return nil, fmt.Errorf("decode speakers for %q: %w", name, err)
		}
	}
	return profile, nil
}
