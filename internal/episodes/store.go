package episodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"podforge/internal/storage"
)

// Store manages episode persistence backed by the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const episodeColumns = "id, name, owner, episode_profile, speaker_profile, briefing, content, job_ref, audio_ref, transcript, outline, created_at, updated_at"

// NewPending inserts a pending episode with no job or artifact reference.
// Callers create the row before submitting the job so a submission failure
// still leaves an inspectable record.
func (s *Store) NewPending(ctx context.Context, name, owner, episodeProfile, speakerProfile, briefing, content string) (*Episode, error) {
	if name == "" {
		return nil, errors.New("episode name is required")
	}
	if owner == "" {
		return nil, errors.New("episode owner is required")
	}

	id := uuid.NewString()
	timestamp := storage.FormatTime(time.Now())

	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO episodes (
            id, name, owner, episode_profile, speaker_profile, briefing,
            content, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		name,
		owner,
		storage.NullableString(episodeProfile),
		storage.NullableString(speakerProfile),
		storage.NullableString(briefing),
		storage.NullableString(content),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	return s.GetByID(ctx, id)
}

// NewImported inserts an episode whose audio was produced outside the
// pipeline. The row carries an artifact reference from the start and never
// gets a job reference.
func (s *Store) NewImported(ctx context.Context, name, owner, audioRef string) (*Episode, error) {
	if name == "" {
		return nil, errors.New("episode name is required")
	}
	if owner == "" {
		return nil, errors.New("episode owner is required")
	}
	if audioRef == "" {
		return nil, errors.New("audio reference is required")
	}

	id := uuid.NewString()
	timestamp := storage.FormatTime(time.Now())

	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO episodes (id, name, owner, audio_ref, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		name,
		owner,
		audioRef,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert imported episode: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an episode by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// FindByNameOwner returns the most recently created episode matching the
// name and owner pair, or nil when none exists. Most-recent-first keeps
// reconciliation deterministic when duplicate names accumulate.
func (s *Store) FindByNameOwner(ctx context.Context, name, owner string) (*Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE name = ? AND owner = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		name,
		owner,
	)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find episode by name: %w", err)
	}
	return episode, nil
}

// ClaimJobRef links an executor job to an episode if no job is linked yet.
// The conditional update makes the first writer win; later attempts return
// false without modifying the row.
func (s *Store) ClaimJobRef(ctx context.Context, id, jobRef string) (bool, error) {
	if jobRef == "" {
		return false, errors.New("job reference is required")
	}
	res, err := s.db.ExecRetry(
		ctx,
		`UPDATE episodes SET job_ref = ?, updated_at = ?
         WHERE id = ? AND (job_ref IS NULL OR job_ref = '')`,
		jobRef,
		storage.FormatTime(time.Now()),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("claim job ref: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Update persists mutable fields of an existing episode. Owner, creation
// time, and the job reference are deliberately excluded; the job reference
// changes only through ClaimJobRef.
func (s *Store) Update(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("episode is nil")
	}
	episode.UpdatedAt = time.Now().UTC()
	if err := s.db.ExecRetryNoResult(
		ctx,
		`UPDATE episodes
         SET name = ?, episode_profile = ?, speaker_profile = ?, briefing = ?,
             content = ?, audio_ref = ?, transcript = ?, outline = ?, updated_at = ?
         WHERE id = ?`,
		episode.Name,
		storage.NullableString(episode.EpisodeProfile),
		storage.NullableString(episode.SpeakerProfile),
		storage.NullableString(episode.Briefing),
		storage.NullableString(episode.Content),
		storage.NullableString(episode.AudioRef),
		storage.NullableString(episode.Transcript),
		storage.NullableString(episode.Outline),
		storage.FormatTime(episode.UpdatedAt),
		episode.ID,
	); err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// ListByOwner returns an owner's episodes, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]*Episode, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE owner = ? ORDER BY created_at DESC, id DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes by owner: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// List returns all episodes, newest first.
func (s *Store) List(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// ActiveStagingNames returns the episode names whose staging directories
// must be kept: episodes still awaiting synthesis output, and episodes whose
// artifact reference points inside the staging root after a degraded
// placement left the file there.
func (s *Store) ActiveStagingNames(ctx context.Context, stagingRoot string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, audio_ref FROM episodes`)
	if err != nil {
		return nil, fmt.Errorf("list staging candidates: %w", err)
	}
	defer rows.Close()

	prefix := ""
	if root := strings.TrimSpace(stagingRoot); root != "" {
		prefix = filepath.Clean(root) + string(os.PathSeparator)
	}

	active := make(map[string]struct{})
	for rows.Next() {
		var (
			name     string
			audioRef sql.NullString
		)
		if err := rows.Scan(&name, &audioRef); err != nil {
			return nil, fmt.Errorf("scan staging candidate: %w", err)
		}
		if audioRef.String == "" || (prefix != "" && strings.HasPrefix(audioRef.String, prefix)) {
			active[name] = struct{}{}
		}
	}
	return active, rows.Err()
}

// Remove deletes an episode by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecRetry(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var list []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, episode)
	}
	return list, rows.Err()
}

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id             string
		name           string
		owner          string
		episodeProfile sql.NullString
		speakerProfile sql.NullString
		briefing       sql.NullString
		content        sql.NullString
		jobRef         sql.NullString
		audioRef       sql.NullString
		transcript     sql.NullString
		outline        sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&owner,
		&episodeProfile,
		&speakerProfile,
		&briefing,
		&content,
		&jobRef,
		&audioRef,
		&transcript,
		&outline,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:             id,
		Name:           name,
		Owner:          owner,
		EpisodeProfile: episodeProfile.String,
		SpeakerProfile: speakerProfile.String,
		Briefing:       briefing.String,
		Content:        content.String,
		JobRef:         jobRef.String,
		AudioRef:       audioRef.String,
		Transcript:     transcript.String,
		Outline:        outline.String,
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}
