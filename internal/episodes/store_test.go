package episodes_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"podforge/internal/episodes"
	"podforge/internal/storage"
)

func newStore(t *testing.T) *episodes.Store {
	t.Helper()
	db, err := storage.OpenPath(filepath.Join(t.TempDir(), "podforge.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return episodes.NewStore(db)
}

func TestNewPendingCreatesBareEpisode(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	episode, err := store.NewPending(ctx, "weekly digest", "user:alice", `{"name":"interview"}`, `{"name":"duo"}`, "brief text", "source content")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	if episode.ID == "" {
		t.Fatal("expected generated id")
	}
	if episode.JobRef != "" {
		t.Fatalf("expected empty job ref, got %q", episode.JobRef)
	}
	if episode.AudioRef != "" {
		t.Fatalf("expected empty audio ref, got %q", episode.AudioRef)
	}
	if episode.HasAudio() || episode.HasJobRef() {
		t.Fatal("expected pending episode")
	}
	if episode.CreatedAt.IsZero() || episode.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}
	if episode.EpisodeProfile != `{"name":"interview"}` {
		t.Fatalf("unexpected episode profile: %q", episode.EpisodeProfile)
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Name != "weekly digest" || fetched.Owner != "user:alice" {
		t.Fatalf("unexpected fetch result: %+v", fetched)
	}
}

func TestGetByIDReturnsNilWhenAbsent(t *testing.T) {
	store := newStore(t)
	episode, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if episode != nil {
		t.Fatalf("expected nil, got %+v", episode)
	}
}

func TestFindByNameOwnerPrefersMostRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.NewPending(ctx, "digest", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("first NewPending failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := store.NewPending(ctx, "digest", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("second NewPending failed: %v", err)
	}
	if _, err := store.NewPending(ctx, "digest", "bob", "", "", "", ""); err != nil {
		t.Fatalf("third NewPending failed: %v", err)
	}

	found, err := store.FindByNameOwner(ctx, "digest", "alice")
	if err != nil {
		t.Fatalf("FindByNameOwner failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected a match")
	}
	if found.ID != second.ID {
		t.Fatalf("expected most recent %s, got %s (older %s)", second.ID, found.ID, first.ID)
	}

	missing, err := store.FindByNameOwner(ctx, "digest", "carol")
	if err != nil {
		t.Fatalf("FindByNameOwner failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown owner, got %+v", missing)
	}
}

func TestClaimJobRefFirstWriterWins(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	episode, err := store.NewPending(ctx, "digest", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}

	claimed, err := store.ClaimJobRef(ctx, episode.ID, "job-1")
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = store.ClaimJobRef(ctx, episode.ID, "job-2")
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to be rejected")
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.JobRef != "job-1" {
		t.Fatalf("expected job-1 to be kept, got %q", fetched.JobRef)
	}
}

func TestUpdateDoesNotTouchJobRef(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	episode, err := store.NewPending(ctx, "digest", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	if _, err := store.ClaimJobRef(ctx, episode.ID, "job-1"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	episode.JobRef = "job-overwrite"
	episode.AudioRef = "s3://bucket/episodes/alice/x/audio.mp3"
	episode.Transcript = `{"segments":[]}`
	episode.Outline = `{"sections":[]}`
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.JobRef != "job-1" {
		t.Fatalf("expected job ref preserved, got %q", fetched.JobRef)
	}
	if fetched.AudioRef != "s3://bucket/episodes/alice/x/audio.mp3" {
		t.Fatalf("expected audio ref persisted, got %q", fetched.AudioRef)
	}
	if fetched.Transcript == "" || fetched.Outline == "" {
		t.Fatal("expected transcript and outline persisted")
	}
}

func TestNewImportedCarriesAudioRefOnly(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	episode, err := store.NewImported(ctx, "external", "alice", "/var/lib/podforge/external.mp3")
	if err != nil {
		t.Fatalf("NewImported failed: %v", err)
	}
	if !episode.HasAudio() {
		t.Fatal("expected audio ref")
	}
	if episode.HasJobRef() {
		t.Fatal("expected no job ref")
	}
}

func TestListByOwnerNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.NewPending(ctx, "one", "alice", "", "", "", ""); err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newest, err := store.NewPending(ctx, "two", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	if _, err := store.NewPending(ctx, "three", "bob", "", "", "", ""); err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}

	list, err := store.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(list))
	}
	if list[0].ID != newest.ID {
		t.Fatalf("expected newest first, got %s", list[0].ID)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(all))
	}
}

func TestRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	episode, err := store.NewPending(ctx, "digest", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}

	removed, err := store.Remove(ctx, episode.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	removed, err = store.Remove(ctx, episode.ID)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected no rows on second removal")
	}
}

func TestActiveStagingNames(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	stagingRoot := filepath.Join("/tmp", "podforge-test", "staging")

	pending, err := store.NewPending(ctx, "still-running", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	_ = pending

	placed, err := store.NewPending(ctx, "placed", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	placed.AudioRef = filepath.Join("/library", "placed", "audio", "placed.mp3")
	if err := store.Update(ctx, placed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stranded, err := store.NewPending(ctx, "stranded", "alice", "", "", "", "")
	if err != nil {
		t.Fatalf("NewPending failed: %v", err)
	}
	stranded.AudioRef = filepath.Join(stagingRoot, "stranded", "audio", "stranded.mp3")
	if err := store.Update(ctx, stranded); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	uploaded, err := store.NewImported(ctx, "uploaded", "alice", "s3://bucket/episodes/uploaded.mp3")
	if err != nil {
		t.Fatalf("NewImported failed: %v", err)
	}
	_ = uploaded

	active, err := store.ActiveStagingNames(ctx, stagingRoot)
	if err != nil {
		t.Fatalf("ActiveStagingNames failed: %v", err)
	}

	for _, name := range []string{"still-running", "stranded"} {
		if _, ok := active[name]; !ok {
			t.Errorf("expected %s to be active", name)
		}
	}
	for _, name := range []string{"placed", "uploaded"} {
		if _, ok := active[name]; ok {
			t.Errorf("expected %s to be inactive", name)
		}
	}
}
