package preflight

import (
	"context"

	"podforge/internal/config"
)

// Result reports the outcome of a single preflight check. Advisory checks
// degrade the daemon when they fail but never block startup.
type Result struct {
	Name     string
	Passed   bool
	Advisory bool
	Detail   string
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Episodes directory", cfg.EpisodesDir()),
		CheckDirectoryAccess("Staging directory", cfg.StagingDir()),
		CheckDiskSpace("Free disk space", cfg.Paths.DataDir),
		CheckDatabase("Database", cfg.Paths.DBPath),
	}

	engine := CheckEngine(ctx, cfg.GetEngine())
	engine.Advisory = true
	results = append(results, engine)

	return results
}

// Blockers returns the failed results that must pass before the daemon can
// start.
func Blockers(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed && !result.Advisory {
			out = append(out, result)
		}
	}
	return out
}
