package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testPlaylist(t *testing.T, name string, tags ...string) *models.Playlist {
	t.Helper()
	p, err := models.NewPlaylist(name, "a description")
	if err != nil {
		t.Fatalf("NewPlaylist() error = %v", err)
	}

	full, _ := models.NewTrack("Paranoid Android", "Radiohead")
	full.Album = "OK Computer"
	full.DurationMs = 383000
	full.ISRC = "GBAYE9700112"
	full.AdditionalArtists = []string{"Guest"}
	full.SetPlatformID("spotify", "sp-1")
	full.Metadata["spotify"] = map[string]any{"popularity": 70}

	minimal, _ := models.NewTrack("Untitled", "Unknown")

	for _, tr := range []*models.Track{full, minimal} {
		if err := p.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}
	for _, tag := range tags {
		p.AddTag(tag)
	}
	p.SetPlatformID("apple_music", "p.1")
	return p
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Save and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		p := testPlaylist(t, "Road Trip", "rock", "driving")

		if err := repo.Save(p); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		got, err := repo.Get(p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}

		if got.Name != p.Name || got.Description != p.Description {
			t.Errorf("expected %q/%q, got %q/%q", p.Name, p.Description, got.Name, got.Description)
		}
		if !got.UpdatedAt.Equal(p.UpdatedAt) || !got.CreatedAt.Equal(p.CreatedAt) {
			t.Errorf("timestamps not preserved: %v/%v vs %v/%v", got.CreatedAt, got.UpdatedAt, p.CreatedAt, p.UpdatedAt)
		}
		if id, _ := got.PlatformID("apple_music"); id != "p.1" {
			t.Errorf("expected platform id p.1, got %q", id)
		}
		if len(got.Tags) != 2 || got.Tags[0] != "rock" || got.Tags[1] != "driving" {
			t.Errorf("expected tags in order, got %v", got.Tags)
		}
		if got.TrackCount() != 2 {
			t.Fatalf("expected 2 tracks, got %d", got.TrackCount())
		}

		first := got.Tracks[0]
		if first.ID != p.Tracks[0].ID || first.ISRC != "GBAYE9700112" || first.DurationMs != 383000 {
			t.Errorf("track fields not preserved: %+v", first)
		}
		if len(first.AdditionalArtists) != 1 || first.AdditionalArtists[0] != "Guest" {
			t.Errorf("additional artists not preserved: %v", first.AdditionalArtists)
		}
		if id, _ := first.PlatformID("spotify"); id != "sp-1" {
			t.Errorf("track platform id not preserved: %q", id)
		}
		if first.Metadata.Section("spotify") == nil {
			t.Error("track metadata not preserved")
		}
		if got.Tracks[1].DurationMs != 0 || got.Tracks[1].Album != "" {
			t.Errorf("minimal track gained fields: %+v", got.Tracks[1])
		}
	})

	t.Run("Save replaces tracks and tags", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		p := testPlaylist(t, "Mix", "old")

		if err := repo.Save(p); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		if err := p.MoveTrack(1, 0); err != nil {
			t.Fatalf("MoveTrack() error = %v", err)
		}
		p.RemoveTag("old")
		p.AddTag("new")
		if err := p.Rename("Renamed"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}

		if err := repo.Save(p); err != nil {
			t.Fatalf("failed to resave playlist: %v", err)
		}

		got, err := repo.Get(p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name != "Renamed" {
			t.Errorf("expected Renamed, got %q", got.Name)
		}
		if got.Tracks[0].Title != "Untitled" {
			t.Errorf("expected moved track first, got %q", got.Tracks[0].Title)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "new" {
			t.Errorf("expected tags [new], got %v", got.Tags)
		}

		n, err := repo.Count()
		if err != nil || n != 1 {
			t.Errorf("expected 1 playlist, got %d (%v)", n, err)
		}
	})

	t.Run("Get missing playlist", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		p := testPlaylist(t, "Doomed")
		if err := repo.Save(p); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		if err := repo.Delete(p.ID); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected deleted playlist to be gone, got %v", err)
		}
		if err := repo.Delete(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound on second delete, got %v", err)
		}

		tracks, err := NewTrackRepository(db).Count()
		if err != nil || tracks != 0 {
			t.Errorf("expected no live tracks, got %d (%v)", tracks, err)
		}

		if err := repo.Save(p); err != nil {
			t.Fatalf("failed to restore playlist: %v", err)
		}
		if _, err := repo.Get(p.ID); err != nil {
			t.Errorf("expected restored playlist, got %v", err)
		}
	})

	t.Run("List filters by name and tags", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		for _, p := range []*models.Playlist{
			testPlaylist(t, "Morning Jazz", "jazz", "chill"),
			testPlaylist(t, "Evening Jazz", "jazz"),
			testPlaylist(t, "Workout", "rock"),
		} {
			if err := repo.Save(p); err != nil {
				t.Fatalf("failed to save playlist: %v", err)
			}
		}

		all, err := repo.List("", nil)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 3 || all[0].Name != "Morning Jazz" {
			t.Fatalf("expected 3 playlists in creation order, got %+v", all)
		}
		if all[0].TrackCount != 2 || len(all[0].Tags) != 2 {
			t.Errorf("unexpected summary %+v", all[0])
		}

		byName, _ := repo.List("JAZZ", nil)
		if len(byName) != 2 {
			t.Errorf("expected 2 jazz playlists, got %d", len(byName))
		}

		byTag, _ := repo.List("", []string{"chill", "rock"})
		if len(byTag) != 2 {
			t.Errorf("expected 2 playlists with chill or rock, got %d", len(byTag))
		}

		both, _ := repo.List("evening", []string{"jazz"})
		if len(both) != 1 || both[0].Name != "Evening Jazz" {
			t.Errorf("expected Evening Jazz, got %+v", both)
		}
	})

	t.Run("Save rejects invalid playlists", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		if err := repo.Save(&models.Playlist{ID: "x"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestTrackRepository(t *testing.T) {
	db := setupTestDB(t)
	playlists := NewPlaylistRepository(db)
	tracks := NewTrackRepository(db)

	a := testPlaylist(t, "A")
	b := testPlaylist(t, "B")
	for _, p := range []*models.Playlist{a, b} {
		if err := playlists.Save(p); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}
	}

	t.Run("ListByPlaylist", func(t *testing.T) {
		got, err := tracks.ListByPlaylist(a.ID)
		if err != nil {
			t.Fatalf("ListByPlaylist() error = %v", err)
		}
		if len(got) != 2 || got[0].Title != "Paranoid Android" {
			t.Errorf("unexpected tracks %v", got)
		}
	})

	t.Run("FindByISRC", func(t *testing.T) {
		got, err := tracks.FindByISRC("GBAYE9700112")
		if err != nil {
			t.Fatalf("FindByISRC() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected one match per playlist, got %d", len(got))
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := tracks.Count()
		if err != nil || n != 4 {
			t.Errorf("expected 4 tracks, got %d (%v)", n, err)
		}
	})
}

func TestSyncHistoryRepository(t *testing.T) {
	t.Run("Create and List", func(t *testing.T) {
		repo := NewSyncHistoryRepository(setupTestDB(t))

		older := models.NewSyncRecord("pl-1", "spotify", models.SyncPush)
		older.CreatedAt = time.Now().UTC().Add(-time.Hour)
		older.PlatformPlaylistID = "sp-pl"
		older.TracksTotal = 10
		older.TracksMissing = 2

		newer := models.NewSyncRecord("pl-1", "spotify", models.SyncPush)
		newer.Error = "boom"

		other := models.NewSyncRecord("pl-2", "apple_music", models.SyncPull)

		for _, r := range []*models.SyncRecord{older, newer, other} {
			if err := repo.Create(r); err != nil {
				t.Fatalf("failed to create sync record: %v", err)
			}
		}

		records, err := repo.List("pl-1", "spotify")
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != newer.ID || records[0].Succeeded() {
			t.Errorf("expected newest failed record first, got %+v", records[0])
		}
		if records[1].TracksMissing != 2 || records[1].PlatformPlaylistID != "sp-pl" {
			t.Errorf("fields not preserved: %+v", records[1])
		}

		all, _ := repo.List("", "")
		if len(all) != 3 {
			t.Errorf("expected 3 records, got %d", len(all))
		}
	})

	t.Run("Latest", func(t *testing.T) {
		repo := NewSyncHistoryRepository(setupTestDB(t))
		latest, err := repo.Latest("pl-1", "spotify")
		if err != nil || latest != nil {
			t.Errorf("expected no record, got %+v (%v)", latest, err)
		}

		r := models.NewSyncRecord("pl-1", "spotify", models.SyncPull)
		if err := repo.Create(r); err != nil {
			t.Fatalf("failed to create sync record: %v", err)
		}
		latest, err = repo.Latest("pl-1", "spotify")
		if err != nil || latest == nil || latest.ID != r.ID {
			t.Errorf("expected %s, got %+v (%v)", r.ID, latest, err)
		}
	})

	t.Run("Create validates", func(t *testing.T) {
		repo := NewSyncHistoryRepository(setupTestDB(t))
		bad := models.NewSyncRecord("pl-1", "spotify", "sideways")
		if err := repo.Create(bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
