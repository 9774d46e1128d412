package platforms

import (
	"context"
	"fmt"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Type names a supported platform. The value is the registry key and the key used in
// [models.Track.PlatformIDs] and [models.Playlist.PlatformIDs].
type Type string

const (
	AppleMusicType Type = "apple_music"
	SpotifyType    Type = "spotify"
)

// Platform is the capability set every streaming integration provides.
//
// Lookups return errors wrapping [shared.ErrTrackNotFound] or [shared.ErrPlaylistNotFound] when the
// catalog has no such resource, and [shared.ErrNotAuthenticated] before a successful Authenticate.
type Platform interface {
	Name() string
	Authenticate(ctx context.Context) error
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)
	GetTrack(ctx context.Context, platformID string) (*models.Track, error)
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) (string, error)
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, platformID string) error
	GetPlaylist(ctx context.Context, platformID string) (*models.Playlist, error)
	GetUserPlaylists(ctx context.Context) ([]*models.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error
	RemoveTracksFromPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error
}

// Base carries state common to adapters. Embed it and call CheckAuth at the top of every remote call.
type Base struct {
	platform      Type
	authenticated bool
}

// Name returns the registry key.
func (b *Base) Name() string {
	return string(b.platform)
}

// Authenticated reports whether Authenticate has succeeded.
func (b *Base) Authenticated() bool {
	return b.authenticated
}

// CheckAuth returns [shared.ErrNotAuthenticated] until the adapter has authenticated.
func (b *Base) CheckAuth() error {
	if !b.authenticated {
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, b.platform)
	}
	return nil
}

func (b *Base) setAuthenticated(ok bool) {
	b.authenticated = ok
}
