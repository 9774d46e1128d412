package platforms

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
	tu "github.com/desertthunder/plylist/internal/testing"
)

func newPlaylist(t *testing.T, name string, tracks ...*models.Track) *models.Playlist {
	t.Helper()
	p, err := models.NewPlaylist(name, "")
	if err != nil {
		t.Fatalf("NewPlaylist() error = %v", err)
	}
	for _, tr := range tracks {
		if err := p.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}
	return p
}

func newTrack(t *testing.T, title, artist string) *models.Track {
	t.Helper()
	tr, err := models.NewTrack(title, artist)
	if err != nil {
		t.Fatalf("NewTrack() error = %v", err)
	}
	return tr
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("uses known ids, searches the rest, reports misses", func(t *testing.T) {
		catalog := tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1")
		catalog.Metadata["mock"] = map[string]any{"url": "https://mock/c-1"}
		mock := tu.NewMockPlatform("mock", catalog)

		known := newTrack(t, "Known", "Artist")
		known.SetPlatformID("mock", "k-1")
		searched := newTrack(t, "creep", "radiohead")
		missing := newTrack(t, "Nowhere", "Nobody")

		res, err := Resolve(ctx, mock, []*models.Track{known, searched, missing}, nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(res.IDs) != 2 || res.IDs[0] != "k-1" || res.IDs[1] != "c-1" {
			t.Errorf("unexpected ids %v", res.IDs)
		}
		if len(res.Missing) != 1 || res.Missing[0] != missing {
			t.Errorf("expected the unmatched track in Missing, got %v", res.Missing)
		}
		if mock.Calls("SearchTrack") != 2 {
			t.Errorf("expected 2 searches, got %d", mock.Calls("SearchTrack"))
		}
		if id, _ := searched.PlatformID("mock"); id != "c-1" {
			t.Errorf("expected id recorded on local track, got %q", id)
		}
		if searched.Metadata.Section("mock").String("url") != "https://mock/c-1" {
			t.Error("expected platform metadata merged onto local track")
		}
	})

	t.Run("search failures do not abort", func(t *testing.T) {
		mock := tu.NewMockPlatform("mock")
		mock.SearchErr = shared.ErrAPIRequest

		res, err := Resolve(ctx, mock, []*models.Track{newTrack(t, "A", "B"), newTrack(t, "C", "D")}, nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(res.IDs) != 0 || len(res.Missing) != 2 {
			t.Errorf("expected all tracks missing, got ids=%v missing=%d", res.IDs, len(res.Missing))
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Resolve(cctx, tu.NewMockPlatform("mock"), []*models.Track{newTrack(t, "A", "B")}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSyncer(t *testing.T) {
	ctx := context.Background()

	t.Run("push creates then updates", func(t *testing.T) {
		mock := tu.NewMockPlatform("mock", tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"))
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		syncer := NewSyncer(nil, metrics)
		playlist := newPlaylist(t, "Mix", newTrack(t, "Creep", "Radiohead"))

		first, err := syncer.Push(ctx, mock, playlist)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		if !first.Created || first.PlatformID == "" {
			t.Fatalf("expected a created remote playlist, got %+v", first)
		}
		if id, _ := playlist.PlatformID("mock"); id != first.PlatformID {
			t.Errorf("expected remote id recorded on playlist, got %q", id)
		}

		for range 2 {
			again, err := syncer.Push(ctx, mock, playlist)
			if err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			if again.Created || again.PlatformID != first.PlatformID {
				t.Errorf("expected update of %s, got %+v", first.PlatformID, again)
			}
		}

		if mock.Calls("CreatePlaylist") != 1 || mock.Calls("UpdatePlaylist") != 2 {
			t.Errorf("expected 1 create and 2 updates, got %d and %d", mock.Calls("CreatePlaylist"), mock.Calls("UpdatePlaylist"))
		}
		if got := testutil.ToFloat64(metrics.SyncsTotal.WithLabelValues("mock", "push", "success")); got != 3 {
			t.Errorf("expected 3 successful pushes counted, got %v", got)
		}
	})

	t.Run("failed create leaves the playlist unassociated", func(t *testing.T) {
		mock := tu.NewMockPlatform("mock")
		mock.CreateErr = shared.ErrAPIRequest
		playlist := newPlaylist(t, "Mix")

		if _, err := NewSyncer(nil, nil).Push(ctx, mock, playlist); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if _, ok := playlist.PlatformID("mock"); ok {
			t.Error("playlist should not gain a platform id")
		}
	})

	t.Run("pull returns a new playlist carrying the remote id", func(t *testing.T) {
		mock := tu.NewMockPlatform("mock", tu.CatalogTrack(t, "mock", "Creep", "Radiohead", "c-1"))
		source := newPlaylist(t, "Remote", newTrack(t, "Creep", "Radiohead"))
		remoteID, err := mock.CreatePlaylist(ctx, source)
		if err != nil {
			t.Fatalf("CreatePlaylist() error = %v", err)
		}

		pulled, err := NewSyncer(nil, nil).Pull(ctx, mock, remoteID)
		if err != nil {
			t.Fatalf("Pull() error = %v", err)
		}
		if pulled.ID == source.ID {
			t.Error("pulled playlist should have a fresh id")
		}
		if id, _ := pulled.PlatformID("mock"); id != remoteID {
			t.Errorf("expected platform id %q, got %q", remoteID, id)
		}
		if pulled.TrackCount() != 1 {
			t.Errorf("expected 1 track, got %d", pulled.TrackCount())
		}
	})

	t.Run("pull errors", func(t *testing.T) {
		mock := tu.NewMockPlatform("mock")
		syncer := NewSyncer(nil, nil)
		if _, err := syncer.Pull(ctx, mock, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := syncer.Pull(ctx, mock, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{shared.ErrNotAuthenticated, "auth_error"},
		{shared.ErrPlaylistNotFound, "not_found"},
		{shared.ErrAPIRequest, "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
