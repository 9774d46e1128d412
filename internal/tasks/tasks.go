package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plylist/internal/manager"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/platforms"
	"github.com/desertthunder/plylist/internal/shared"
)

// Library is the part of [manager.Manager] the engine drives.
type Library interface {
	Get(id string) (*models.Playlist, error)
	List(query string, tags []string) ([]models.PlaylistSummary, error)
	Platform(name string) (platforms.Platform, error)
	SyncToPlatform(ctx context.Context, id, platform string) (*manager.SyncResult, error)
}

// Comparison contains track comparison details between a local playlist and its remote copy.
type Comparison struct {
	Local      *models.Playlist
	Remote     *models.Playlist
	Matched    []*models.Track // Local tracks with a remote counterpart
	LocalOnly  []*models.Track // Tracks missing from the remote playlist
	RemoteOnly []*models.Track // Remote tracks with no local counterpart
}

// InSync reports whether both sides hold the same recordings.
func (c *Comparison) InSync() bool {
	return len(c.LocalOnly) == 0 && len(c.RemoteOnly) == 0
}

// PlaylistSyncResult is the outcome for one playlist in [Engine.SyncAll].
type PlaylistSyncResult struct {
	PlaylistID    string
	Name          string
	PlatformID    string
	Created       bool
	TracksTotal   int
	TracksMissing int
	Error         error
}

// SyncAllResult contains the per-playlist outcomes of a bulk push.
type SyncAllResult struct {
	Platform   string
	Total      int
	Successful int
	Failed     int
	Results    []PlaylistSyncResult
}

// EngineOpts configures an Engine.
type EngineOpts struct {
	RateLimit float64 // Playlists per second during SyncAll (default: 2)
	Logger    *log.Logger
}

// Engine runs operations spanning several playlists or both sides of a sync.
type Engine struct {
	library Library
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewEngine creates an Engine over library.
func NewEngine(library Library, opts EngineOpts) *Engine {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	return &Engine{
		library: library,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:  shared.WithLogger(opts.Logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Diff pairs the tracks of local and remote. Each track is classified once; duplicates on
// one side all match a single counterpart on the other.
func Diff(local, remote *models.Playlist) *Comparison {
	c := &Comparison{
		Local:      local,
		Remote:     remote,
		Matched:    []*models.Track{},
		LocalOnly:  []*models.Track{},
		RemoteOnly: []*models.Track{},
	}

	for _, lt := range local.Tracks {
		if containsMatch(remote.Tracks, lt) {
			c.Matched = append(c.Matched, lt)
		} else {
			c.LocalOnly = append(c.LocalOnly, lt)
		}
	}

	for _, rt := range remote.Tracks {
		if !containsMatch(local.Tracks, rt) {
			c.RemoteOnly = append(c.RemoteOnly, rt)
		}
	}
	return c
}

func containsMatch(tracks []*models.Track, t *models.Track) bool {
	for _, other := range tracks {
		if t.Matches(other) {
			return true
		}
	}
	return false
}

// Diff compares local playlist id with the copy on platform.
//
// The playlist must already be associated with platform.
func (e *Engine) Diff(ctx context.Context, progress chan<- ProgressUpdate, platform, id string) (*Comparison, error) {
	p, err := e.library.Platform(platform)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchLocalUpdate(id))
	local, err := e.library.Get(id)
	if err != nil {
		return nil, err
	}

	remoteID, ok := local.PlatformID(platform)
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s has not been synced to %s", shared.ErrInvalidInput, local.ID, platform)
	}

	e.sendProgress(progress, fetchRemoteUpdate(platform, remoteID))
	remote, err := p.GetPlaylist(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s playlist %s: %w", platform, remoteID, err)
	}

	c := Diff(local, remote)
	e.sendProgress(progress, compareUpdate(c))
	return c, nil
}

// SyncAll pushes every local playlist to platform, one at a time.
//
// Playlist failures are collected in the result. The returned error is set only when the
// run could not start or ctx was cancelled; the partial result is returned alongside it.
func (e *Engine) SyncAll(ctx context.Context, progress chan<- ProgressUpdate, platform string) (*SyncAllResult, error) {
	if _, err := e.library.Platform(platform); err != nil {
		return nil, err
	}

	summaries, err := e.library.List("", nil)
	if err != nil {
		return nil, err
	}

	total := len(summaries)
	result := &SyncAllResult{
		Platform: platform,
		Total:    total,
		Results:  make([]PlaylistSyncResult, 0, total),
	}

	for i, s := range summaries {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("sync cancelled after %d of %d playlists: %w", i, total, err)
		}

		e.sendProgress(progress, syncingPlaylistUpdate(i+1, total, s))

		res := PlaylistSyncResult{PlaylistID: s.ID, Name: s.Name}
		pushed, err := e.library.SyncToPlatform(ctx, s.ID, platform)
		if err != nil {
			res.Error = err
			result.Failed++
			e.logger.Warn("playlist sync failed", "playlist", s.ID, "platform", platform, "error", err)
			e.sendProgress(progress, syncFailedUpdate(i+1, total, res))
		} else {
			res.PlatformID = pushed.PlatformID
			res.Created = pushed.Created
			res.TracksTotal = pushed.TracksTotal
			res.TracksMissing = pushed.TracksMissing
			result.Successful++
			e.sendProgress(progress, syncCompletedUpdate(i+1, total, res))
		}
		result.Results = append(result.Results, res)
	}

	e.logger.Info("sync finished", "platform", platform, "successful", result.Successful, "failed", result.Failed)
	return result, nil
}
