package testsupport

import (
	"context"
	"testing"

	"podforge/internal/config"
	"podforge/internal/profiles"
	"podforge/internal/storage"
)

// MustOpenStore opens the shared database for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// SeedProfiles loads the embedded default episode and speaker profiles.
func SeedProfiles(t testing.TB, db *storage.DB) {
	t.Helper()

	if err := profiles.NewStore(db).EnsureSeeds(context.Background()); err != nil {
		t.Fatalf("seed profiles: %v", err)
	}
}
