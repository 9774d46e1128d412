package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/plylist/internal/shared"
)

const spotifyTrackJSON = `{"id":%q,"name":%q,"artists":[{"name":%q},{"name":"Guest"}],"album":{"name":"Pablo Honey","images":[{"url":"https://img/cover.jpg"}]},"duration_ms":238000,"external_ids":{"isrc":"GBAYE9200070"},"external_urls":{"spotify":"https://open.spotify.com/track/%s"},"popularity":80}`

func newTestSpotify(t *testing.T) *Spotify {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"user-1","display_name":"Tester"}`)
	})
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "track" {
			http.Error(w, "bad type", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"tracks":{"items":[%s,%s]}}`,
			fmt.Sprintf(spotifyTrackJSON, "sp0", "Creep - Live", "Cover Band", "sp0"),
			fmt.Sprintf(spotifyTrackJSON, "sp1", "Creep", "Radiohead", "sp1"),
		)
	})
	mux.HandleFunc("GET /tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"status":404,"message":"Not found"}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewSpotify(SpotifyOpts{HTTPClient: srv.Client(), BaseURL: srv.URL})
	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	return s
}

func TestSpotify(t *testing.T) {
	ctx := context.Background()

	t.Run("Authenticate without a token", func(t *testing.T) {
		s := NewSpotify(SpotifyOpts{OAuth: SpotifyOAuthConfig("id", "secret", "http://127.0.0.1:3000/callback")})
		err := s.Authenticate(ctx)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if _, err := s.SearchTrack(ctx, "a", "b"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Authenticate records the user", func(t *testing.T) {
		s := newTestSpotify(t)
		if s.UserID() != "user-1" {
			t.Errorf("expected user-1, got %q", s.UserID())
		}
	})

	t.Run("SearchTrack picks the first acceptable candidate", func(t *testing.T) {
		s := newTestSpotify(t)
		track, err := s.SearchTrack(ctx, "Creep", "Radiohead")
		if err != nil {
			t.Fatalf("SearchTrack() error = %v", err)
		}
		if id, _ := track.PlatformID("spotify"); id != "sp1" {
			t.Errorf("expected sp1, got %q", id)
		}
		if track.ISRC != "GBAYE9200070" || track.DurationMs != 238000 {
			t.Errorf("unexpected track %+v", track)
		}
		if len(track.AdditionalArtists) != 1 || track.AdditionalArtists[0] != "Guest" {
			t.Errorf("unexpected additional artists %v", track.AdditionalArtists)
		}
		if track.Metadata.Section("spotify").String("artwork") != "https://img/cover.jpg" {
			t.Error("expected artwork in spotify metadata")
		}
	})

	t.Run("GetTrack maps 404", func(t *testing.T) {
		s := newTestSpotify(t)
		if _, err := s.GetTrack(ctx, "missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("OAuth config", func(t *testing.T) {
		cfg := SpotifyOAuthConfig("id", "secret", "http://127.0.0.1:3000/callback")
		if cfg.Endpoint.TokenURL != spotifyTokenURL || len(cfg.Scopes) != len(SpotifyScopes) {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}
