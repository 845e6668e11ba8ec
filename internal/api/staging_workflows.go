package api

import (
	"context"
	"fmt"
	"strings"

	"podforge/internal/staging"
)

// ActiveNameProvider surfaces episode names whose staging directories are
// still needed by cleanup workflows.
type ActiveNameProvider interface {
	ActiveStagingNames(ctx context.Context, stagingRoot string) (map[string]struct{}, error)
}

type CleanStagingRequest struct {
	StagingRoot string
	CleanAll    bool
	ActiveNames ActiveNameProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanStaleResult
}

// CleanStagingDirectories applies the staging cleanup policy used by CLI commands.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	root := strings.TrimSpace(req.StagingRoot)
	if root == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanStale(ctx, root, 0, nil),
		}, nil
	}

	if req.ActiveNames == nil {
		return CleanStagingResult{}, fmt.Errorf("active name provider is required when clean_all is false")
	}
	names, err := req.ActiveNames.ActiveStagingNames(ctx, root)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, root, names, nil),
	}, nil
}
