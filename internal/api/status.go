package api

import (
	"context"

	"podforge/internal/executor"
)

// JobStatsReader returns job counts grouped by status.
type JobStatsReader interface {
	Stats(ctx context.Context) (map[executor.Status]int, error)
}

// HealthChecker probes the synthesis engine.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusSources carries the daemon-owned handles and facts needed to build a
// status DTO. Jobs and Engine may be nil when the daemon is not running.
type StatusSources struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	SocketPath   string
	LastError    string
	Jobs         JobStatsReader
	Engine       HealthChecker
}

// BuildDaemonStatus assembles the daemon status DTO. Every source degrades
// independently: a failing stats query leaves the stats empty and an
// unreachable engine is reported unhealthy rather than failing the call.
func BuildDaemonStatus(ctx context.Context, src StatusSources) DaemonStatus {
	status := DaemonStatus{
		Running:      src.Running,
		PID:          src.PID,
		QueueDBPath:  src.QueueDBPath,
		LockFilePath: src.LockFilePath,
		SocketPath:   src.SocketPath,
		LastError:    src.LastError,
	}
	if src.Jobs != nil {
		if stats, err := src.Jobs.Stats(ctx); err == nil {
			status.JobStats = MergeJobStats(stats)
		}
	}
	switch {
	case src.Engine == nil:
		status.Engine = EngineHealth{Detail: "engine not configured"}
	default:
		if err := src.Engine.HealthCheck(ctx); err != nil {
			status.Engine = EngineHealth{Detail: err.Error()}
		} else {
			status.Engine = EngineHealth{Healthy: true}
		}
	}
	return status
}
