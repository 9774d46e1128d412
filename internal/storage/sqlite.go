package storage

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/repositories"
	"github.com/desertthunder/plylist/internal/shared"
)

// SQLStore keeps playlists in SQLite and records sync history.
type SQLStore struct {
	db        *sql.DB
	path      string
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	history   *repositories.SyncHistoryRepository
	logger    *log.Logger
}

// OpenSQLStore opens the database at cfg.Path and applies pending migrations.
func OpenSQLStore(cfg shared.DatabaseConfig, logger *log.Logger) (*SQLStore, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	if cfg.Path != ":memory:" {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	logger = shared.WithLogger(logger, "store", SQLiteBackend)
	applied, err := shared.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	if applied > 0 {
		logger.Info("applied migrations", "count", applied, "path", cfg.Path)
	}

	return NewSQLStore(db, cfg.Path, logger), nil
}

// NewSQLStore wraps an already migrated database. location is reported by Stats.
func NewSQLStore(db *sql.DB, location string, logger *log.Logger) *SQLStore {
	return &SQLStore{
		db:        db,
		path:      location,
		playlists: repositories.NewPlaylistRepository(db),
		tracks:    repositories.NewTrackRepository(db),
		history:   repositories.NewSyncHistoryRepository(db),
		logger:    shared.WithLogger(logger, "store", SQLiteBackend),
	}
}

func (s *SQLStore) Save(playlist *models.Playlist) error {
	return s.playlists.Save(playlist)
}

func (s *SQLStore) Load(id string) (*models.Playlist, error) {
	return s.playlists.Get(id)
}

func (s *SQLStore) Delete(id string) error {
	return s.playlists.Delete(id)
}

func (s *SQLStore) List() ([]models.PlaylistSummary, error) {
	return s.playlists.List("", nil)
}

func (s *SQLStore) Search(query string, tags []string) ([]models.PlaylistSummary, error) {
	return s.playlists.List(query, tags)
}

func (s *SQLStore) Export(id, path string, format formatter.Format) error {
	return exportPlaylist(s, id, path, format)
}

func (s *SQLStore) Import(path string, format formatter.Format) (*models.Playlist, error) {
	return importPlaylist(path, format)
}

func (s *SQLStore) Stats() (Stats, error) {
	playlists, err := s.playlists.Count()
	if err != nil {
		return Stats{}, err
	}
	tracks, err := s.tracks.Count()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Backend: SQLiteBackend, TotalPlaylists: playlists, TotalTracks: tracks, Location: s.path}, nil
}

// FindByISRC returns stored tracks with isrc across all playlists.
func (s *SQLStore) FindByISRC(isrc string) ([]*models.Track, error) {
	return s.tracks.FindByISRC(isrc)
}

func (s *SQLStore) RecordSync(record *models.SyncRecord) error {
	return s.history.Create(record)
}

func (s *SQLStore) SyncHistory(playlistID, platform string) ([]*models.SyncRecord, error) {
	return s.history.List(playlistID, platform)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
