package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubNameProvider struct {
	names map[string]struct{}
	err   error
}

func (s *stubNameProvider) ActiveStagingNames(context.Context, string) (map[string]struct{}, error) {
	return s.names, s.err
}

func mkStagingDirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("create staging dir %s: %v", name, err)
		}
	}
}

func TestCleanStagingDirectoriesUnconfigured(t *testing.T) {
	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingRoot: "   "})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Configured {
		t.Fatal("blank root should report unconfigured")
	}
}

func TestCleanStagingDirectoriesAll(t *testing.T) {
	root := t.TempDir()
	mkStagingDirs(t, root, "keep-me", "and-me")

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingRoot: root,
		CleanAll:    true,
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if !result.Configured {
		t.Fatal("expected configured result")
	}
	if result.Scope != "staging" {
		t.Fatalf("scope = %q", result.Scope)
	}
	if len(result.Cleanup.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(result.Cleanup.Removed))
	}
}

func TestCleanStagingDirectoriesOrphansOnly(t *testing.T) {
	root := t.TempDir()
	mkStagingDirs(t, root, "in-flight", "abandoned")

	provider := &stubNameProvider{names: map[string]struct{}{"in-flight": {}}}
	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingRoot: root,
		ActiveNames: provider,
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Scope != "orphaned staging" {
		t.Fatalf("scope = %q", result.Scope)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Cleanup.Removed))
	}
	if _, err := os.Stat(filepath.Join(root, "in-flight")); err != nil {
		t.Fatalf("active directory should survive: %v", err)
	}
}

func TestCleanStagingDirectoriesRequiresProvider(t *testing.T) {
	_, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected error without a provider")
	}
}

func TestCleanStagingDirectoriesProviderError(t *testing.T) {
	provider := &stubNameProvider{err: errors.New("database locked")}
	_, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingRoot: t.TempDir(),
		ActiveNames: provider,
	})
	if err == nil || !errors.Is(err, provider.err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
