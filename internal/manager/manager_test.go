package manager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/storage"
	tu "github.com/desertthunder/plylist/internal/testing"
)

func newFileManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "playlists"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return New(store, Options{})
}

func newSQLManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.OpenSQLStore(shared.DatabaseConfig{Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	m := New(store, Options{})
	t.Cleanup(func() { m.Close() })
	return m
}

func newTrack(t *testing.T, title, artist string) *models.Track {
	t.Helper()
	tr, err := models.NewTrack(title, artist)
	if err != nil {
		t.Fatalf("NewTrack() error = %v", err)
	}
	return tr
}

// seed creates a playlist holding the given title/artist pairs.
func seed(t *testing.T, m *Manager, name string, pairs ...string) *models.Playlist {
	t.Helper()
	p, err := m.Create(name, "", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if p, err = m.AddTrack(p.ID, newTrack(t, pairs[i], pairs[i+1])); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}
	return p
}

func TestRegistry(t *testing.T) {
	m := newFileManager(t)
	m.RegisterPlatform(tu.NewMockPlatform("spotify"))
	m.RegisterPlatform(tu.NewMockPlatform("apple_music"))

	t.Run("names are sorted", func(t *testing.T) {
		names := m.Platforms()
		if len(names) != 2 || names[0] != "apple_music" || names[1] != "spotify" {
			t.Errorf("unexpected platforms %v", names)
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		if _, err := m.Platform("tidal"); !errors.Is(err, shared.ErrPlatformNotFound) {
			t.Errorf("expected ErrPlatformNotFound, got %v", err)
		}
	})
}

func TestLifecycle(t *testing.T) {
	m := newFileManager(t)

	t.Run("create, rename and tag", func(t *testing.T) {
		p, err := m.Create("Road Trip", "long drives", []string{"summer"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := m.Rename(p.ID, "Night Drive"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		if _, err := m.AddTags(p.ID, "night", "summer"); err != nil {
			t.Fatalf("AddTags() error = %v", err)
		}
		if _, err := m.RemoveTags(p.ID, "summer"); err != nil {
			t.Fatalf("RemoveTags() error = %v", err)
		}

		got, err := m.Get(p.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name != "Night Drive" {
			t.Errorf("expected renamed playlist, got %q", got.Name)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "night" {
			t.Errorf("unexpected tags %v", got.Tags)
		}
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		if _, err := m.Create("  ", "", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("list filters by query and tags", func(t *testing.T) {
		if _, err := m.Create("Workout", "", []string{"gym"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		all, err := m.List("", nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(all))
		}

		byName, _ := m.List("night", nil)
		if len(byName) != 1 || byName[0].Name != "Night Drive" {
			t.Errorf("unexpected query result %v", byName)
		}

		byTag, _ := m.List("", []string{"gym", "missing"})
		if len(byTag) != 1 || byTag[0].Name != "Workout" {
			t.Errorf("unexpected tag result %v", byTag)
		}
	})

	t.Run("remove track", func(t *testing.T) {
		p := seed(t, m, "Removals", "A", "X", "B", "Y")
		if _, err := m.RemoveTrack(p.ID, p.Tracks[0].ID); err != nil {
			t.Fatalf("RemoveTrack() error = %v", err)
		}
		got, _ := m.Get(p.ID)
		if got.TrackCount() != 1 || got.Tracks[0].Title != "B" {
			t.Errorf("unexpected tracks after removal: %v", got.Tracks)
		}
		if _, err := m.RemoveTrack(p.ID, "nope"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		p := seed(t, m, "Temporary")
		if err := m.Delete(p.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := m.Get(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestMoveTrack(t *testing.T) {
	m := newFileManager(t)
	p := seed(t, m, "Order", "A", "X", "B", "Y", "C", "Z")

	t.Run("moves within bounds", func(t *testing.T) {
		got, err := m.MoveTrack(p.ID, 0, 2)
		if err != nil {
			t.Fatalf("MoveTrack() error = %v", err)
		}
		order := []string{got.Tracks[0].Title, got.Tracks[1].Title, got.Tracks[2].Title}
		if order[0] != "B" || order[1] != "C" || order[2] != "A" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("out of range leaves the playlist unchanged", func(t *testing.T) {
		for _, tc := range [][2]int{{-1, 0}, {0, 3}, {3, 0}} {
			if _, err := m.MoveTrack(p.ID, tc[0], tc[1]); !errors.Is(err, shared.ErrIndexOutOfRange) {
				t.Errorf("MoveTrack(%d, %d) expected ErrIndexOutOfRange, got %v", tc[0], tc[1], err)
			}
		}
		got, _ := m.Get(p.ID)
		if got.Tracks[0].Title != "B" || got.Tracks[2].Title != "A" {
			t.Error("expected stored order untouched")
		}
	})
}

func TestDuplicate(t *testing.T) {
	m := newFileManager(t)
	src := seed(t, m, "Favorites", "Creep", "Radiohead", "Karma Police", "Radiohead")
	src.Description = "the best"
	src.AddTag("rock")
	src.SetPlatformID("spotify", "sp-1")
	if err := m.Update(src); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	t.Run("default name", func(t *testing.T) {
		dup, err := m.Duplicate(src.ID, "")
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}
		if dup.Name != "Copy of Favorites" {
			t.Errorf("expected default copy name, got %q", dup.Name)
		}
		if dup.ID == src.ID {
			t.Error("expected a new playlist id")
		}
		if dup.Description != "the best" || len(dup.Tags) != 1 || dup.Tags[0] != "rock" {
			t.Errorf("expected description and tags copied, got %q %v", dup.Description, dup.Tags)
		}
		if _, ok := dup.PlatformID("spotify"); ok {
			t.Error("platform association should not be copied")
		}
		if dup.TrackCount() != 2 || dup.Tracks[0].ID != src.Tracks[0].ID {
			t.Error("expected tracks copied with their ids")
		}
	})

	t.Run("explicit name", func(t *testing.T) {
		dup, err := m.Duplicate(src.ID, "Backup")
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}
		if dup.Name != "Backup" {
			t.Errorf("expected Backup, got %q", dup.Name)
		}
	})

	t.Run("copies are independent", func(t *testing.T) {
		dup, _ := m.Duplicate(src.ID, "")
		if _, err := m.Rename(dup.ID, "Changed"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		if _, err := m.MoveTrack(dup.ID, 0, 1); err != nil {
			t.Fatalf("MoveTrack() error = %v", err)
		}
		orig, _ := m.Get(src.ID)
		if orig.Name != "Favorites" || orig.Tracks[0].Title != "Creep" {
			t.Error("source playlist changed after editing its copy")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		if _, err := m.Duplicate(shared.GenerateID(), ""); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestMerge(t *testing.T) {
	m := newFileManager(t)
	a := seed(t, m, "A", "Creep", "Radiohead", "Yellow", "Coldplay")
	b := seed(t, m, "B", "creep ", "RADIOHEAD", "Clocks", "Coldplay", "Yellow", "Coldplay")

	t.Run("dedup keeps first occurrence across sources", func(t *testing.T) {
		merged, err := m.Merge([]string{a.ID, b.ID}, "Mix", true)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if merged.TrackCount() != 3 {
			t.Fatalf("expected 3 tracks, got %d", merged.TrackCount())
		}
		want := []string{"Creep", "Yellow", "Clocks"}
		for i, title := range want {
			if merged.Tracks[i].Title != title {
				t.Errorf("track %d: expected %q, got %q", i, title, merged.Tracks[i].Title)
			}
		}
		if merged.Description != "" {
			t.Errorf("expected no description, got %q", merged.Description)
		}
		if len(merged.Tags) != 0 {
			t.Errorf("expected no tags, got %v", merged.Tags)
		}
	})

	t.Run("without dedup keeps everything", func(t *testing.T) {
		merged, err := m.Merge([]string{a.ID, b.ID}, "All", false)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if merged.TrackCount() != 5 {
			t.Errorf("expected 5 tracks, got %d", merged.TrackCount())
		}
	})

	t.Run("unresolved ids are skipped", func(t *testing.T) {
		merged, err := m.Merge([]string{shared.GenerateID(), b.ID}, "Partial", true)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if merged.TrackCount() != 3 {
			t.Errorf("expected the 3 tracks of B, got %d", merged.TrackCount())
		}
	})

	t.Run("only unknown ids is an error and saves nothing", func(t *testing.T) {
		before, err := m.List("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.Merge([]string{shared.GenerateID()}, "None", true); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		after, err := m.List("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(after) != len(before) {
			t.Errorf("expected no playlist to be saved, had %d now %d", len(before), len(after))
		}
		if _, err := m.Merge(nil, "None", true); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestTrackSet(t *testing.T) {
	s := newTrackSet(0)
	if !s.add("a|b") {
		t.Error("expected first add to be new")
	}
	if s.add("a|b") {
		t.Error("expected second add to be a duplicate")
	}
	if !s.add("c|d") {
		t.Error("expected a different key to be new")
	}
}

func TestSyncToPlatform(t *testing.T) {
	ctx := context.Background()

	t.Run("second push updates instead of creating", func(t *testing.T) {
		m := newFileManager(t)
		mock := tu.NewMockPlatform("mock",
			tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"),
		)
		m.RegisterPlatform(mock)
		p := seed(t, m, "Push", "Creep", "Radiohead", "Unknown", "Nobody")

		first, err := m.SyncToPlatform(ctx, p.ID, "mock")
		if err != nil {
			t.Fatalf("SyncToPlatform() error = %v", err)
		}
		if !first.Created || first.PlatformID == "" {
			t.Fatalf("expected a created remote playlist, got %+v", first)
		}
		if first.TracksTotal != 2 || first.TracksMissing != 1 {
			t.Errorf("expected 2 total and 1 missing, got %d/%d", first.TracksTotal, first.TracksMissing)
		}

		stored, _ := m.Get(p.ID)
		if id, _ := stored.PlatformID("mock"); id != first.PlatformID {
			t.Errorf("expected platform id persisted, got %q", id)
		}
		if id, _ := stored.Tracks[0].PlatformID("mock"); id != "c-1" {
			t.Errorf("expected resolved track id persisted, got %q", id)
		}

		second, err := m.SyncToPlatform(ctx, p.ID, "mock")
		if err != nil {
			t.Fatalf("SyncToPlatform() error = %v", err)
		}
		if second.Created || second.PlatformID != first.PlatformID {
			t.Errorf("expected update of %s, got %+v", first.PlatformID, second)
		}
		if mock.Calls("CreatePlaylist") != 1 || mock.Calls("UpdatePlaylist") != 1 {
			t.Errorf("expected 1 create and 1 update, got %d and %d",
				mock.Calls("CreatePlaylist"), mock.Calls("UpdatePlaylist"))
		}
	})

	t.Run("failed push leaves storage alone", func(t *testing.T) {
		m := newFileManager(t)
		mock := tu.NewMockPlatform("mock")
		mock.CreateErr = shared.ErrAPIRequest
		m.RegisterPlatform(mock)
		p := seed(t, m, "Fails", "A", "B")

		if _, err := m.SyncToPlatform(ctx, p.ID, "mock"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		stored, _ := m.Get(p.ID)
		if _, ok := stored.PlatformID("mock"); ok {
			t.Error("expected no platform id after failure")
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		m := newFileManager(t)
		p := seed(t, m, "Nowhere")
		if _, err := m.SyncToPlatform(ctx, p.ID, "tidal"); !errors.Is(err, shared.ErrPlatformNotFound) {
			t.Errorf("expected ErrPlatformNotFound, got %v", err)
		}
	})
}

func TestSyncFromPlatform(t *testing.T) {
	ctx := context.Background()
	m := newFileManager(t)
	mock := tu.NewMockPlatform("mock", tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"))
	m.RegisterPlatform(mock)

	remote, _ := models.NewPlaylist("Remote", "")
	remote.AddTrack(tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"))
	mock.Remote["r-1"] = remote

	pulled, err := m.SyncFromPlatform(ctx, "r-1", "mock")
	if err != nil {
		t.Fatalf("SyncFromPlatform() error = %v", err)
	}
	if pulled.ID == remote.ID {
		t.Error("expected a new local id")
	}
	if id, _ := pulled.PlatformID("mock"); id != "r-1" {
		t.Errorf("expected platform id r-1, got %q", id)
	}
	stored, err := m.Get(pulled.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.TrackCount() != 1 {
		t.Errorf("expected 1 track stored, got %d", stored.TrackCount())
	}

	if _, err := m.SyncFromPlatform(ctx, "missing", "mock"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestSyncHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("recorded by the sqlite backend", func(t *testing.T) {
		m := newSQLManager(t)
		mock := tu.NewMockPlatform("mock", tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"))
		m.RegisterPlatform(mock)
		p := seed(t, m, "History", "Creep", "Radiohead")

		if _, err := m.SyncToPlatform(ctx, p.ID, "mock"); err != nil {
			t.Fatalf("SyncToPlatform() error = %v", err)
		}
		mock.UpdateErr = shared.ErrAPIRequest
		if _, err := m.SyncToPlatform(ctx, p.ID, "mock"); err == nil {
			t.Fatal("expected second push to fail")
		}

		history, err := m.SyncHistory(p.ID, "mock")
		if err != nil {
			t.Fatalf("SyncHistory() error = %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 records, got %d", len(history))
		}
		failures := 0
		for _, r := range history {
			if !r.Succeeded() {
				failures++
			}
		}
		if failures != 1 {
			t.Errorf("expected one failed record, got %d", failures)
		}

		status, err := m.SyncStatus("mock")
		if err != nil {
			t.Fatalf("SyncStatus() error = %v", err)
		}
		if len(status.Synced) != 1 || status.Synced[0].LastSync == nil {
			t.Errorf("expected one synced playlist with a last sync, got %+v", status.Synced)
		}
	})

	t.Run("file backend does not keep history", func(t *testing.T) {
		m := newFileManager(t)
		if _, err := m.SyncHistory("", ""); !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})
}

func TestSyncStatus(t *testing.T) {
	m := newFileManager(t)
	synced := seed(t, m, "Synced")
	synced.SetPlatformID("mock", "r-9")
	if err := m.Update(synced); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	seed(t, m, "Local")

	status, err := m.SyncStatus("mock")
	if err != nil {
		t.Fatalf("SyncStatus() error = %v", err)
	}
	if len(status.Synced) != 1 || status.Synced[0].PlatformID != "r-9" {
		t.Errorf("unexpected synced entries %+v", status.Synced)
	}
	if len(status.LocalOnly) != 1 || status.LocalOnly[0].Name != "Local" {
		t.Errorf("unexpected local-only entries %+v", status.LocalOnly)
	}
}

func TestImportExport(t *testing.T) {
	m := newFileManager(t)
	p := seed(t, m, "Exported", "Creep", "Radiohead")
	path := filepath.Join(t.TempDir(), "exported.json")

	if err := m.Export(p.ID, path, formatter.JSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	imported, err := m.Import(path, formatter.JSON)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if imported.ID == p.ID {
		t.Error("expected a colliding import to get a new id")
	}
	if imported.TrackCount() != 1 || imported.Tracks[0].Title != "Creep" {
		t.Errorf("unexpected imported tracks %v", imported.Tracks)
	}

	all, _ := m.List("", nil)
	if len(all) != 2 {
		t.Errorf("expected original and import stored, got %d", len(all))
	}
}

func TestFindTrack(t *testing.T) {
	for name, open := range map[string]func(*testing.T) *Manager{
		"file":   newFileManager,
		"sqlite": newSQLManager,
	} {
		t.Run(name, func(t *testing.T) {
			m := open(t)
			p := seed(t, m, "ISRC", "Creep", "Radiohead", "Other", "Artist")
			p.Tracks[0].ISRC = "GBAYE9200070"
			if err := m.Update(p); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			found, err := m.FindTrack("GBAYE9200070")
			if err != nil {
				t.Fatalf("FindTrack() error = %v", err)
			}
			if len(found) != 1 || found[0].Title != "Creep" {
				t.Errorf("unexpected result %v", found)
			}
			if _, err := m.FindTrack(" "); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	m := newFileManager(t)
	m.RegisterPlatform(tu.NewMockPlatform("mock"))
	seed(t, m, "One", "A", "B", "C", "D")
	seed(t, m, "Two", "E", "F")

	st, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.TotalPlaylists != 2 || st.TotalTracks != 3 {
		t.Errorf("expected 2 playlists and 3 tracks, got %d/%d", st.TotalPlaylists, st.TotalTracks)
	}
	if len(st.Platforms) != 1 || st.Platforms[0] != "mock" {
		t.Errorf("unexpected platforms %v", st.Platforms)
	}
}
