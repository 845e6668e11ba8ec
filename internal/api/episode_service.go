package api

import (
	"context"
	"time"

	"podforge/internal/artifacts"
	"podforge/internal/episodes"
)

// EpisodeStore abstracts the episode persistence interactions needed for API
// queries.
type EpisodeStore interface {
	GetByID(ctx context.Context, id string) (*episodes.Episode, error)
	List(ctx context.Context) ([]*episodes.Episode, error)
	ListByOwner(ctx context.Context, owner string) ([]*episodes.Episode, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// StatusResolver derives a job status string for an episode.
type StatusResolver interface {
	Status(ctx context.Context, episode *episodes.Episode) string
}

// ArtifactAccess deletes stored artifacts and issues presigned links for
// object-tier references.
type ArtifactAccess interface {
	Delete(ctx context.Context, ref string)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) string
}

// EpisodeService exposes episode read and delete operations returning API
// DTOs.
type EpisodeService struct {
	store     EpisodeStore
	status    StatusResolver
	artifacts ArtifactAccess
}

// NewEpisodeService constructs an EpisodeService around the provided handles.
func NewEpisodeService(store EpisodeStore, status StatusResolver, artifacts ArtifactAccess) *EpisodeService {
	if store == nil {
		return nil
	}
	return &EpisodeService{store: store, status: status, artifacts: artifacts}
}

// List returns episodes newest first, filtered to one owner when owner is
// non-empty.
func (s *EpisodeService) List(ctx context.Context, owner string) ([]Episode, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	var (
		records []*episodes.Episode
		err     error
	)
	if owner != "" {
		records, err = s.store.ListByOwner(ctx, owner)
	} else {
		records, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Episode, 0, len(records))
	for _, record := range records {
		out = append(out, FromEpisode(record, s.resolveStatus(ctx, record)))
	}
	return out, nil
}

// Describe fetches a single episode, or nil when it does not exist.
func (s *EpisodeService) Describe(ctx context.Context, id string) (*Episode, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	dto := FromEpisode(record, s.resolveStatus(ctx, record))
	dto.DownloadURL = s.presignDownload(ctx, record)
	return &dto, nil
}

// presignDownload issues a direct link for object-tier artifacts. Local
// artifacts are only reachable through the streaming endpoint, and a failed
// or unconfigured signer leaves the field empty.
func (s *EpisodeService) presignDownload(ctx context.Context, record *episodes.Episode) string {
	if s.artifacts == nil || !artifacts.IsObjectRef(record.AudioRef) {
		return ""
	}
	_, key, ok := artifacts.ParseObjectRef(record.AudioRef)
	if !ok {
		return ""
	}
	return s.artifacts.PresignedURL(ctx, key, 0)
}

// Delete removes an episode and its stored artifact. Artifact cleanup runs
// first and never blocks the entity delete; a missing episode reports false.
func (s *EpisodeService) Delete(ctx context.Context, id string) (bool, error) {
	if s == nil || s.store == nil {
		return false, nil
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if record.HasAudio() && s.artifacts != nil {
		s.artifacts.Delete(ctx, record.AudioRef)
	}
	return s.store.Remove(ctx, id)
}

func (s *EpisodeService) resolveStatus(ctx context.Context, record *episodes.Episode) string {
	if s.status == nil {
		return ""
	}
	return s.status.Status(ctx, record)
}
