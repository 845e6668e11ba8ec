package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"podforge/internal/api"
	"podforge/internal/artifacts"
	"podforge/internal/config"
	"podforge/internal/episodes"
	"podforge/internal/executor"
	"podforge/internal/generation"
	"podforge/internal/logging"
	"podforge/internal/notifications"
	"podforge/internal/preflight"
	"podforge/internal/profiles"
	"podforge/internal/services/engine"
	"podforge/internal/storage"
)

// statusProbeTimeout bounds the engine health probe and job stats query made
// while assembling a status snapshot.
const statusProbeTimeout = 5 * time.Second

// Daemon coordinates background job processing and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB

	episodes  *episodes.Store
	profiles  *profiles.Store
	jobs      *executor.Store
	exec      *executor.Executor
	artifacts *artifacts.Store
	engine    *engine.Client
	notifier  notifications.Service

	episodeSvc    *api.EpisodeService
	generationSvc *api.GenerationService

	server *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The database handle
// is shared by every store; the caller retains ownership until Close.
func New(cfg *config.Config, db *storage.DB, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || db == nil || logger == nil {
		return nil, errors.New("daemon requires config, database, and logger")
	}

	engineClient, err := engine.NewClient(cfg.GetEngine())
	if err != nil {
		return nil, fmt.Errorf("engine client: %w", err)
	}

	episodeStore := episodes.NewStore(db)
	profileStore := profiles.NewStore(db)
	jobStore := executor.NewStore(db)
	artifactStore := artifacts.NewStore(cfg, logger)
	notifier := notifications.NewService(cfg)

	registry := executor.NewRegistry()
	worker := generation.NewWorker(cfg, episodeStore, profileStore, artifactStore, engineClient, notifier, logger)
	worker.Register(registry)
	exec := executor.New(cfg, jobStore, registry, logger)

	submitter := generation.NewSubmitter(episodeStore, profileStore, exec, logger)
	aggregator := generation.NewAggregator(exec, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "podforged.lock")
	d := &Daemon{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		episodes:      episodeStore,
		profiles:      profileStore,
		jobs:          jobStore,
		exec:          exec,
		artifacts:     artifactStore,
		engine:        engineClient,
		notifier:      notifier,
		episodeSvc:    api.NewEpisodeService(episodeStore, aggregator, artifactStore),
		generationSvc: api.NewGenerationService(submitter, exec),
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// EpisodeService exposes episode listing, describe, and delete operations for
// transports.
func (d *Daemon) EpisodeService() *api.EpisodeService {
	return d.episodeSvc
}

// GenerationService exposes job submission and job status operations for
// transports.
func (d *Daemon) GenerationService() *api.GenerationService {
	return d.generationSvc
}

// Start runs preflight checks, acquires the daemon lock, and launches the job
// executor and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.runPreflight(ctx); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podforge daemon instance is already running")
	}

	if err := d.profiles.EnsureSeeds(ctx); err != nil {
		d.teardown()
		return fmt.Errorf("seed profiles: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.exec.Start(d.ctx); err != nil {
		d.teardown()
		return fmt.Errorf("start executor: %w", err)
	}
	if err := d.server.start(d.ctx); err != nil {
		d.exec.Stop()
		d.teardown()
		return err
	}

	d.running.Store(true)
	d.logger.Info("podforge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// runPreflight executes startup checks, warning on advisory failures and
// refusing to start on required ones.
func (d *Daemon) runPreflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, d.cfg)
	for _, res := range results {
		switch {
		case res.Passed:
			d.logger.Info("preflight check passed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail))
		case res.Advisory:
			d.logger.Warn("preflight check degraded",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail))
		default:
			d.logger.Error("preflight check failed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail))
		}
	}
	if blockers := preflight.Blockers(results); len(blockers) > 0 {
		failures := make([]string, 0, len(blockers))
		for _, res := range blockers {
			failures = append(failures, fmt.Sprintf("%s: %s", res.Name, res.Detail))
		}
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (d *Daemon) teardown() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.exec.Stop()
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("podforge daemon stopped")
}

// Close releases resources held by the daemon, including the shared database.
func (d *Daemon) Close() error {
	d.Stop()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// LogPath returns the daemon log file location, or empty when file logging
// is disabled.
func (d *Daemon) LogPath() string {
	if d.cfg == nil {
		return ""
	}
	return logging.DaemonLogPath(d.cfg.Paths.LogDir)
}

// Status assembles the current daemon status snapshot. Probes are bounded so
// an unresponsive engine cannot stall status reporting.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	statusCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	var lastError string
	if message, err := d.jobs.LastFailure(statusCtx); err == nil {
		lastError = message
	}
	return api.BuildDaemonStatus(statusCtx, api.StatusSources{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.cfg.Paths.DBPath,
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.Paths.SocketPath,
		LastError:    lastError,
		Jobs:         d.jobs,
		Engine:       d.engine,
	})
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
