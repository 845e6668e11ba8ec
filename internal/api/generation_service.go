package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podforge/internal/executor"
	"podforge/internal/generation"
	"podforge/internal/services"
)

// GenerationSubmitter abstracts the submission pipeline entry point.
type GenerationSubmitter interface {
	Submit(ctx context.Context, req generation.SubmitRequest) (string, error)
}

// JobReader fetches job records from the executor.
type JobReader interface {
	Get(ctx context.Context, jobID string) (*executor.Job, error)
}

// GenerationService exposes submission and job status operations returning
// API DTOs.
type GenerationService struct {
	submitter GenerationSubmitter
	jobs      JobReader
}

// NewGenerationService constructs a GenerationService around the provided
// handles.
func NewGenerationService(submitter GenerationSubmitter, jobs JobReader) *GenerationService {
	if submitter == nil && jobs == nil {
		return nil
	}
	return &GenerationService{submitter: submitter, jobs: jobs}
}

// Submit validates and enqueues a generation, returning a receipt with the
// job id for status polling.
func (s *GenerationService) Submit(ctx context.Context, req SubmitGenerationRequest) (GenerationReceipt, error) {
	if s == nil || s.submitter == nil {
		return GenerationReceipt{}, services.Wrap(services.ErrConfiguration, "api", "submit", "generation submission is not available", nil)
	}
	if strings.TrimSpace(req.Owner) == "" {
		req.Owner = DefaultOwner
	}
	jobID, err := s.submitter.Submit(ctx, generation.SubmitRequest{
		EpisodeProfile: req.EpisodeProfile,
		SpeakerProfile: req.SpeakerProfile,
		EpisodeName:    req.EpisodeName,
		Content:        req.Content,
		BriefingSuffix: req.BriefingSuffix,
		Owner:          req.Owner,
	})
	if err != nil {
		return GenerationReceipt{}, err
	}
	return GenerationReceipt{
		JobID:          jobID,
		Status:         "submitted",
		Message:        fmt.Sprintf("Podcast generation started for episode '%s'", req.EpisodeName),
		EpisodeProfile: req.EpisodeProfile,
		EpisodeName:    req.EpisodeName,
	}, nil
}

// JobStatus fetches a job record, or nil when the job does not exist.
func (s *GenerationService) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if s == nil || s.jobs == nil {
		return nil, nil
	}
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}
