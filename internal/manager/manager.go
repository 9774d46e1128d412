package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/platforms"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/storage"
)

// Manager coordinates storage and the registered platforms.
type Manager struct {
	store     storage.Store
	platforms map[string]platforms.Platform
	syncer    *platforms.Syncer
	logger    *log.Logger
}

// Options configures a Manager. Every field may be left zero.
type Options struct {
	Logger  *log.Logger
	Metrics *platforms.Metrics
}

// SyncResult describes a finished push.
type SyncResult struct {
	Playlist      *models.Playlist
	Platform      string
	PlatformID    string
	Created       bool
	TracksTotal   int
	TracksMissing int
}

// Stats combines storage totals with the registered platforms.
type Stats struct {
	storage.Stats
	Platforms []string `json:"platforms"`
}

// PlaylistSyncState is a synced playlist and its most recent sync, when history is kept.
type PlaylistSyncState struct {
	Summary    models.PlaylistSummary `json:"playlist"`
	PlatformID string                 `json:"platform_id"`
	LastSync   *models.SyncRecord     `json:"last_sync,omitempty"`
}

// SyncStatus splits local playlists by whether they are associated with a platform.
type SyncStatus struct {
	Platform  string                   `json:"platform"`
	Synced    []PlaylistSyncState      `json:"synced"`
	LocalOnly []models.PlaylistSummary `json:"local_only"`
}

// isrcFinder is implemented by stores that can look up tracks by ISRC without loading every playlist.
type isrcFinder interface {
	FindByISRC(isrc string) ([]*models.Track, error)
}

// New creates a Manager over store.
func New(store storage.Store, opts Options) *Manager {
	logger := shared.WithLogger(opts.Logger, "component", "manager")
	return &Manager{
		store:     store,
		platforms: map[string]platforms.Platform{},
		syncer:    platforms.NewSyncer(opts.Logger, opts.Metrics),
		logger:    logger,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() storage.Store {
	return m.store
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// RegisterPlatform adds p under its name, replacing any adapter registered with the same name.
func (m *Manager) RegisterPlatform(p platforms.Platform) {
	m.platforms[p.Name()] = p
	m.logger.Debug("registered platform", "platform", p.Name())
}

// Platform returns the adapter registered as name.
func (m *Manager) Platform(name string) (platforms.Platform, error) {
	p, ok := m.platforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlatformNotFound, name)
	}
	return p, nil
}

// Platforms returns the registered platform names in sorted order.
func (m *Manager) Platforms() []string {
	names := make([]string, 0, len(m.platforms))
	for name := range m.platforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create saves a new empty playlist.
func (m *Manager) Create(name, description string, tags []string) (*models.Playlist, error) {
	playlist, err := models.NewPlaylist(name, description)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		playlist.AddTag(tag)
	}
	if err := m.store.Save(playlist); err != nil {
		return nil, err
	}
	m.logger.Info("created playlist", "id", playlist.ID, "name", playlist.Name)
	return playlist, nil
}

func (m *Manager) Get(id string) (*models.Playlist, error) {
	return m.store.Load(id)
}

// Update validates and saves playlist as given.
func (m *Manager) Update(playlist *models.Playlist) error {
	if playlist == nil {
		return fmt.Errorf("%w: nil playlist", shared.ErrInvalidInput)
	}
	if err := playlist.Validate(); err != nil {
		return err
	}
	return m.store.Save(playlist)
}

func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	m.logger.Info("deleted playlist", "id", id)
	return nil
}

// List returns every playlist, or the ones matching query and tags when either is given.
func (m *Manager) List(query string, tags []string) ([]models.PlaylistSummary, error) {
	if strings.TrimSpace(query) == "" && len(tags) == 0 {
		return m.store.List()
	}
	return m.store.Search(query, tags)
}

// mutate loads id, applies fn and saves the result.
func (m *Manager) mutate(id string, fn func(*models.Playlist) error) (*models.Playlist, error) {
	playlist, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(playlist); err != nil {
		return nil, err
	}
	if err := m.store.Save(playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (m *Manager) AddTrack(id string, track *models.Track) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error { return p.AddTrack(track) })
}

// RemoveTrack removes every occurrence of trackID from the playlist.
func (m *Manager) RemoveTrack(id, trackID string) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error {
		if !p.RemoveTrack(trackID) {
			return fmt.Errorf("%w: %s in playlist %s", shared.ErrTrackNotFound, trackID, id)
		}
		return nil
	})
}

// MoveTrack moves the track at from to position to. Both are zero-based.
func (m *Manager) MoveTrack(id string, from, to int) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error { return p.MoveTrack(from, to) })
}

func (m *Manager) Rename(id, name string) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error { return p.Rename(name) })
}

func (m *Manager) AddTags(id string, tags ...string) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error {
		for _, tag := range tags {
			p.AddTag(tag)
		}
		return nil
	})
}

func (m *Manager) RemoveTags(id string, tags ...string) (*models.Playlist, error) {
	return m.mutate(id, func(p *models.Playlist) error {
		for _, tag := range tags {
			p.RemoveTag(tag)
		}
		return nil
	})
}

func (m *Manager) Export(id, path string, format formatter.Format) error {
	return m.store.Export(id, path, format)
}

// Import reads a playlist from path and saves it. An imported playlist whose id is already
// stored is saved under a new id so the existing record is left alone.
func (m *Manager) Import(path string, format formatter.Format) (*models.Playlist, error) {
	playlist, err := m.store.Import(path, format)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.Load(playlist.ID); err == nil {
		playlist.ID = shared.GenerateID()
	} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}
	if err := m.store.Save(playlist); err != nil {
		return nil, err
	}
	m.logger.Info("imported playlist", "id", playlist.ID, "tracks", playlist.TrackCount(), "path", path)
	return playlist, nil
}

// SyncToPlatform pushes playlist id to platformName and saves it on success.
//
// A failed push leaves the stored playlist untouched.
func (m *Manager) SyncToPlatform(ctx context.Context, id, platformName string) (*SyncResult, error) {
	p, err := m.Platform(platformName)
	if err != nil {
		return nil, err
	}
	playlist, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}

	record := models.NewSyncRecord(playlist.ID, platformName, models.SyncPush)
	push, err := m.syncer.Push(ctx, p, playlist)
	if err != nil {
		record.Error = err.Error()
		if remoteID, ok := playlist.PlatformID(platformName); ok {
			record.PlatformPlaylistID = remoteID
		}
		m.record(record)
		return nil, err
	}

	if err := m.store.Save(playlist); err != nil {
		return nil, err
	}

	result := &SyncResult{
		Playlist:      playlist,
		Platform:      platformName,
		PlatformID:    push.PlatformID,
		Created:       push.Created,
		TracksTotal:   playlist.TrackCount(),
		TracksMissing: unresolved(playlist, platformName),
	}

	record.PlatformPlaylistID = push.PlatformID
	record.TracksTotal = result.TracksTotal
	record.TracksMissing = result.TracksMissing
	m.record(record)

	if result.TracksMissing > 0 {
		m.logger.Warn("some tracks were not found on platform",
			"platform", platformName, "playlist", playlist.ID, "missing", result.TracksMissing)
	}
	return result, nil
}

// SyncFromPlatform fetches platformPlaylistID from platformName and saves it as a new playlist.
func (m *Manager) SyncFromPlatform(ctx context.Context, platformPlaylistID, platformName string) (*models.Playlist, error) {
	p, err := m.Platform(platformName)
	if err != nil {
		return nil, err
	}

	playlist, err := m.syncer.Pull(ctx, p, platformPlaylistID)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(playlist); err != nil {
		return nil, err
	}

	record := models.NewSyncRecord(playlist.ID, platformName, models.SyncPull)
	record.PlatformPlaylistID = platformPlaylistID
	record.TracksTotal = playlist.TrackCount()
	m.record(record)
	return playlist, nil
}

// record writes to the sync history when the store keeps one. Failures are logged, not returned.
func (m *Manager) record(record *models.SyncRecord) {
	recorder, ok := m.store.(storage.SyncRecorder)
	if !ok {
		return
	}
	if err := recorder.RecordSync(record); err != nil {
		m.logger.Warn("failed to record sync", "playlist", record.PlaylistID, "platform", record.Platform, "error", err)
	}
}

// SyncHistory returns the recorded syncs for a playlist, newest first. Either filter may be empty.
func (m *Manager) SyncHistory(playlistID, platformName string) ([]*models.SyncRecord, error) {
	recorder, ok := m.store.(storage.SyncRecorder)
	if !ok {
		return nil, fmt.Errorf("%w: sync history requires the %s backend", shared.ErrNotImplemented, storage.SQLiteBackend)
	}
	return recorder.SyncHistory(playlistID, platformName)
}

// Duplicate saves a copy of playlist id under a new id. Tracks keep their ids; platform
// associations are not copied. An empty name yields "Copy of {name}".
func (m *Manager) Duplicate(id, name string) (*models.Playlist, error) {
	source, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Copy of " + source.Name
	}

	dup, err := models.NewPlaylist(name, source.Description)
	if err != nil {
		return nil, err
	}
	for _, tag := range source.Tags {
		dup.AddTag(tag)
	}
	dup.Metadata = source.Metadata.Clone()

	tracks, err := copyTracks(source.Tracks)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		if err := dup.AddTrack(t); err != nil {
			return nil, err
		}
	}

	if err := m.store.Save(dup); err != nil {
		return nil, err
	}
	m.logger.Info("duplicated playlist", "source", source.ID, "id", dup.ID)
	return dup, nil
}

// copyTracks round-trips tracks through JSON.
func copyTracks(tracks []*models.Track) ([]*models.Track, error) {
	data, err := json.Marshal(tracks)
	if err != nil {
		return nil, fmt.Errorf("copy tracks: %w", err)
	}
	var out []*models.Track
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy tracks: %w", err)
	}
	return out, nil
}

// Merge saves a new playlist holding the tracks of ids in order. Ids that cannot be loaded are
// skipped with a warning. With dedup only the first track per lower(title)|lower(artist) key is kept.
func (m *Manager) Merge(ids []string, name string, dedup bool) (*models.Playlist, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist id is required", shared.ErrMissingArgument)
	}

	sources := make([]*models.Playlist, 0, len(ids))
	total := 0
	for _, id := range ids {
		p, err := m.store.Load(id)
		if err != nil {
			m.logger.Warn("skipping playlist", "id", id, "error", err)
			continue
		}
		sources = append(sources, p)
		total += p.TrackCount()
	}
	// Nothing is saved when every id is unknown.
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: none of %s", shared.ErrPlaylistNotFound, strings.Join(ids, ", "))
	}

	merged, err := models.NewPlaylist(name, "")
	if err != nil {
		return nil, err
	}

	seen := newTrackSet(total)
	for _, p := range sources {
		tracks, err := copyTracks(p.Tracks)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			if dedup && !seen.add(t.MatchKey()) {
				continue
			}
			if err := merged.AddTrack(t); err != nil {
				return nil, err
			}
		}
	}

	if err := m.store.Save(merged); err != nil {
		return nil, err
	}
	m.logger.Info("merged playlists", "id", merged.ID, "sources", len(sources), "tracks", merged.TrackCount())
	return merged, nil
}

// trackSet is a bloom filter in front of an exact key set.
type trackSet struct {
	filter *bloom.BloomFilter
	keys   map[string]struct{}
}

func newTrackSet(n int) *trackSet {
	return &trackSet{
		filter: bloom.NewWithEstimates(uint(max(n, 1)), 0.01),
		keys:   make(map[string]struct{}, n),
	}
}

// add reports whether key was new.
func (s *trackSet) add(key string) bool {
	if s.filter.TestString(key) {
		if _, ok := s.keys[key]; ok {
			return false
		}
	}
	s.filter.AddString(key)
	s.keys[key] = struct{}{}
	return true
}

func (m *Manager) Stats() (Stats, error) {
	st, err := m.store.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Stats: st, Platforms: m.Platforms()}, nil
}

// SyncStatus reports which local playlists are associated with platformName.
func (m *Manager) SyncStatus(platformName string) (*SyncStatus, error) {
	if strings.TrimSpace(platformName) == "" {
		return nil, fmt.Errorf("%w: platform is required", shared.ErrMissingArgument)
	}

	summaries, err := m.store.List()
	if err != nil {
		return nil, err
	}

	recorder, _ := m.store.(storage.SyncRecorder)
	status := &SyncStatus{Platform: platformName, Synced: []PlaylistSyncState{}, LocalOnly: []models.PlaylistSummary{}}
	for _, s := range summaries {
		playlist, err := m.store.Load(s.ID)
		if err != nil {
			return nil, err
		}
		remoteID, ok := playlist.PlatformID(platformName)
		if !ok {
			status.LocalOnly = append(status.LocalOnly, s)
			continue
		}

		state := PlaylistSyncState{Summary: s, PlatformID: remoteID}
		if recorder != nil {
			if history, err := recorder.SyncHistory(s.ID, platformName); err == nil && len(history) > 0 {
				state.LastSync = history[0]
			}
		}
		status.Synced = append(status.Synced, state)
	}
	return status, nil
}

// FindTrack returns every stored track with isrc.
func (m *Manager) FindTrack(isrc string) ([]*models.Track, error) {
	isrc = strings.TrimSpace(isrc)
	if isrc == "" {
		return nil, fmt.Errorf("%w: isrc is required", shared.ErrMissingArgument)
	}
	if finder, ok := m.store.(isrcFinder); ok {
		return finder.FindByISRC(isrc)
	}

	summaries, err := m.store.List()
	if err != nil {
		return nil, err
	}
	found := []*models.Track{}
	for _, s := range summaries {
		playlist, err := m.store.Load(s.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range playlist.Tracks {
			if t.ISRC == isrc {
				found = append(found, t)
			}
		}
	}
	return found, nil
}

// unresolved counts tracks without an id on platform.
func unresolved(playlist *models.Playlist, platform string) int {
	n := 0
	for _, t := range playlist.Tracks {
		if _, ok := t.PlatformID(platform); !ok {
			n++
		}
	}
	return n
}
