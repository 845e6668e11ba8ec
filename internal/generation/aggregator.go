package generation

import (
	"context"
	"log/slog"

	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/logging"
)

// StatusUnknown is reported when an episode references a job the executor
// cannot account for.
const StatusUnknown = "unknown"

// Aggregator folds episode and job state into one user-facing status string.
type Aggregator struct {
	exec   *executor.Executor
	logger *slog.Logger
}

// NewAggregator wires status derivation against the executor.
func NewAggregator(exec *executor.Executor, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		exec:   exec,
		logger: logging.NewComponentLogger(logger, "generation"),
	}
}

// Status derives an episode's status. A linked job wins and its state is
// reported verbatim; a lookup failure degrades to "unknown" rather than an
// error. Without a job link, an artifact means "completed" (imported
// externally) and anything else is "pending".
func (a *Aggregator) Status(ctx context.Context, episode *episodes.Episode) string {
	if episode == nil {
		return StatusUnknown
	}
	if episode.HasJobRef() {
		status, err := a.exec.Status(ctx, episode.JobRef)
		if err != nil {
			a.logger.Warn("job status lookup failed",
				logging.Error(err),
				logging.String(logging.FieldJobID, episode.JobRef),
				logging.String(logging.FieldEpisodeID, episode.ID),
			)
			return StatusUnknown
		}
		return string(status)
	}
	if episode.HasAudio() {
		return string(executor.StatusCompleted)
	}
	return string(executor.StatusPending)
}
