package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"podforge/internal/config"
	"podforge/internal/services/engine"
	"podforge/internal/storage"
)

// minFreeBytes is the disk space floor for the data filesystem. Generated
// episodes are tens of megabytes; below this the next synthesis is likely to
// fail mid-write.
const minFreeBytes = 500 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has room for new
// episode artifacts.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, need at least %d MB", free>>20, uint64(minFreeBytes)>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", free>>20)}
}

// CheckDatabase verifies the job database can be opened and its schema is
// current. Opening also creates the database on first run.
func CheckDatabase(name, dbPath string) Result {
	if strings.TrimSpace(dbPath) == "" {
		return Result{Name: name, Detail: "db path not configured"}
	}
	db, err := storage.OpenPath(dbPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	if err := db.Close(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: close: %v)", dbPath, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema ok)", dbPath)}
}

// CheckEngine verifies the synthesis engine answers its health endpoint.
// It uses a 10-second timeout and a single attempt.
func CheckEngine(ctx context.Context, cfg config.EngineConfig) Result {
	const name = "Synthesis engine"

	client, err := engine.NewClient(cfg, engine.WithRetryMaxAttempts(1))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEngineError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", client.BaseURL())}
}

// summarizeEngineError produces a short summary for engine health failures.
func summarizeEngineError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (engine unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (engine unreachable)"
	}
	return err.Error()
}
