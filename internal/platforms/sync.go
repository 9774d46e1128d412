package platforms

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// PushResult reports what a push did.
type PushResult struct {
	PlatformID string
	Created    bool
}

// Syncer decides between creating and updating remote playlists.
type Syncer struct {
	logger  *log.Logger
	metrics *Metrics
}

// NewSyncer creates a Syncer. Both arguments may be nil.
func NewSyncer(logger *log.Logger, metrics *Metrics) *Syncer {
	return &Syncer{logger: shared.WithLogger(logger, "component", "sync"), metrics: metrics}
}

// Push propagates playlist to p.
//
// A playlist already associated with p is updated, which replaces the remote track list with the
// local one. Otherwise a remote playlist is created and its identifier is recorded on playlist.
// On failure playlist is only changed by whatever the adapter itself recorded (resolved track ids).
func (s *Syncer) Push(ctx context.Context, p Platform, playlist *models.Playlist) (PushResult, error) {
	if playlist == nil {
		return PushResult{}, fmt.Errorf("%w: nil playlist", shared.ErrInvalidInput)
	}

	name := p.Name()
	logger := s.logger.With("platform", name, "playlist", playlist.ID)

	if remoteID, ok := playlist.PlatformID(name); ok {
		logger.Debug("updating remote playlist", "remote_id", remoteID)
		err := p.UpdatePlaylist(ctx, playlist)
		s.metrics.observeSync(name, "push", err)
		if err != nil {
			return PushResult{}, fmt.Errorf("update %s playlist %s: %w", name, remoteID, err)
		}
		return PushResult{PlatformID: remoteID}, nil
	}

	logger.Debug("creating remote playlist")
	remoteID, err := p.CreatePlaylist(ctx, playlist)
	if err == nil && remoteID == "" {
		err = fmt.Errorf("%w: %s returned an empty playlist id", shared.ErrAPIRequest, name)
	}
	s.metrics.observeSync(name, "push", err)
	if err != nil {
		return PushResult{}, fmt.Errorf("create %s playlist: %w", name, err)
	}

	playlist.SetPlatformID(name, remoteID)
	logger.Info("created remote playlist", "remote_id", remoteID)
	return PushResult{PlatformID: remoteID, Created: true}, nil
}

// Pull fetches the remote playlist platformID from p as a new local entity carrying that identifier.
// It never merges into an existing local playlist.
func (s *Syncer) Pull(ctx context.Context, p Platform, platformID string) (*models.Playlist, error) {
	if platformID == "" {
		return nil, fmt.Errorf("%w: platform playlist id is required", shared.ErrMissingArgument)
	}

	name := p.Name()
	playlist, err := p.GetPlaylist(ctx, platformID)
	if err == nil && playlist == nil {
		err = fmt.Errorf("%w: %s %s", shared.ErrPlaylistNotFound, name, platformID)
	}
	s.metrics.observeSync(name, "pull", err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s playlist %s: %w", name, platformID, err)
	}

	playlist.SetPlatformID(name, platformID)
	s.logger.Info("pulled playlist", "platform", name, "remote_id", platformID, "tracks", playlist.TrackCount())
	return playlist, nil
}
