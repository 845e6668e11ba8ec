package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"podforge/internal/config"
	"podforge/internal/logging"
	"podforge/internal/services"
)

// Executor dispatches submitted jobs to a bounded worker pool.
type Executor struct {
	store    *Store
	registry *Registry
	logger   *slog.Logger

	workers         int
	queue           chan string
	requeueInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight map[string]struct{}
}

// New constructs an executor over the given store and registry. Worker pool
// size, channel capacity, and sweep cadence come from configuration.
func New(cfg *config.Config, store *Store, registry *Registry, logger *slog.Logger) *Executor {
	workers := cfg.Executor.Workers
	if workers < 1 {
		workers = 1
	}
	capacity := cfg.Executor.QueueCapacity
	if capacity < 1 {
		capacity = 1
	}
	interval := time.Duration(cfg.Executor.RequeueInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Executor{
		store:           store,
		registry:        registry,
		logger:          logging.NewComponentLogger(logger, "executor"),
		workers:         workers,
		queue:           make(chan string, capacity),
		requeueInterval: interval,
		inflight:        make(map[string]struct{}),
	}
}

// Registry exposes the command registry for handler registration.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Submit validates the command, persists a pending job, and offers it to the
// dispatch channel. The caller never blocks on a full channel; rows the
// channel could not take are redelivered by the requeue sweep.
func (e *Executor) Submit(ctx context.Context, command string, payload json.RawMessage) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", services.Wrap(services.ErrValidation, "executor", "submit", "command name is required", nil)
	}
	if _, ok := e.registry.Lookup(command); !ok {
		return "", services.Wrap(services.ErrValidation, "executor", "submit", fmt.Sprintf("command %q is not registered", command), nil)
	}

	job, err := e.store.Create(ctx, command, payload)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "executor", "submit", "persist job", err)
	}

	e.enqueue(job.ID)
	return job.ID, nil
}

// Status reports the job's current lifecycle state.
func (e *Executor) Status(ctx context.Context, jobID string) (Status, error) {
	job, err := e.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// Get fetches the full job record.
func (e *Executor) Get(ctx context.Context, jobID string) (*Job, error) {
	job, err := e.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "executor", "get", fmt.Sprintf("job %s not found", jobID), nil)
	}
	return job, nil
}

// Stats returns a count of jobs grouped by status.
func (e *Executor) Stats(ctx context.Context) (map[Status]int, error) {
	return e.store.Stats(ctx)
}

// Running reports whether background dispatch is active.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start begins background dispatch. Jobs left running by a previous process
// are reset to pending first so the initial sweep redelivers them.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("executor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(2)
	e.mu.Unlock()

	if count, err := e.store.ResetRunning(runCtx); err != nil {
		e.logger.Warn("reset interrupted jobs failed", logging.Error(err))
	} else if count > 0 {
		e.logger.Info("reset interrupted jobs to pending", logging.Int64("count", count))
	}

	go e.dispatchLoop(runCtx)
	go e.requeueLoop(runCtx)
	return nil
}

// Stop terminates background dispatch and waits for in-flight handlers to
// observe cancellation and return.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

func (e *Executor) dispatchLoop(ctx context.Context) {
	defer e.wg.Done()

	slots := make(chan struct{}, e.workers)
	var jobWG sync.WaitGroup
	defer jobWG.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-e.queue:
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				e.release(id)
				return
			}
			jobWG.Add(1)
			go func(jobID string) {
				defer jobWG.Done()
				defer func() { <-slots }()
				defer e.release(jobID)
				e.runJob(ctx, jobID)
			}(id)
		}
	}
}

func (e *Executor) requeueLoop(ctx context.Context) {
	defer e.wg.Done()

	e.sweep(ctx)
	ticker := time.NewTicker(e.requeueInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

// sweep redelivers pending rows that never made it into the channel, either
// because it was full at submit time or because the rows predate this
// process.
func (e *Executor) sweep(ctx context.Context) {
	ids, err := e.store.PendingIDs(ctx, cap(e.queue))
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("requeue sweep failed", logging.Error(err))
		}
		return
	}
	requeued := 0
	for _, id := range ids {
		if e.enqueue(id) {
			requeued++
		}
	}
	if requeued > 0 {
		e.logger.Debug("requeued pending jobs", logging.Int("count", requeued))
	}
}

// enqueue offers a job id to the dispatch channel without blocking. Returns
// false when the id is already in flight or the channel is full.
func (e *Executor) enqueue(id string) bool {
	e.mu.Lock()
	if _, busy := e.inflight[id]; busy {
		e.mu.Unlock()
		return false
	}
	e.inflight[id] = struct{}{}
	e.mu.Unlock()

	select {
	case e.queue <- id:
		return true
	default:
		e.release(id)
		return false
	}
}

func (e *Executor) release(id string) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
}

func (e *Executor) runJob(ctx context.Context, jobID string) {
	job, err := e.store.GetByID(ctx, jobID)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("load queued job", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		}
		return
	}
	if job == nil || job.Status != StatusPending {
		return
	}

	claimed, err := e.store.MarkRunning(ctx, jobID)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("claim job", logging.Error(err), logging.String(logging.FieldJobID, jobID))
		}
		return
	}
	if !claimed {
		return
	}

	jobCtx := services.WithJobID(ctx, jobID)
	jobCtx = services.WithCommand(jobCtx, job.Command)
	logger := logging.WithContext(jobCtx, e.logger)

	handler, ok := e.registry.Lookup(job.Command)
	if !ok {
		message := fmt.Sprintf("command %q has no registered handler", job.Command)
		logger.Error("job handler missing")
		if err := e.store.Finish(jobCtx, jobID, StatusFailed, nil, message); err != nil {
			logger.Error("persist handler-missing failure", logging.Error(err))
		}
		return
	}

	logger.Info("job started")
	start := time.Now()
	result, execErr := e.invoke(jobCtx, handler, job.Payload, logger)

	if execErr != nil && errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
		// Shutdown interrupted the handler. Leave the row running so the
		// next start resets it to pending and redelivers it.
		logger.Debug("job interrupted by shutdown")
		return
	}

	status := StatusCompleted
	errorMessage := ""
	if execErr != nil {
		status = StatusFailed
		errorMessage = execErr.Error()
	}
	if err := e.store.Finish(jobCtx, jobID, status, result, errorMessage); err != nil {
		logger.Error("persist job result", logging.Error(err))
		return
	}

	if execErr != nil {
		logger.Error("job failed",
			logging.Error(execErr),
			logging.Duration("job_duration", time.Since(start)),
		)
		return
	}
	logger.Info("job completed", logging.Duration("job_duration", time.Since(start)))
}

// invoke runs the handler with panic recovery so one bad job cannot take the
// worker pool down.
func (e *Executor) invoke(ctx context.Context, handler Handler, payload json.RawMessage, logger *slog.Logger) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job handler panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			result = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}
