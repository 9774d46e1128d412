package storage

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Store persists whole playlists. Every Save replaces the stored record; the last write wins.
type Store interface {
	Save(playlist *models.Playlist) error
	Load(id string) (*models.Playlist, error)
	Delete(id string) error
	List() ([]models.PlaylistSummary, error)
	// Search matches names containing query (ignoring case) and, when tags are given, playlists carrying any of them.
	Search(query string, tags []string) ([]models.PlaylistSummary, error)
	Export(id, path string, format formatter.Format) error
	// Import reads a playlist from path without saving it.
	Import(path string, format formatter.Format) (*models.Playlist, error)
	Stats() (Stats, error)
	Close() error
}

// SyncRecorder is implemented by stores that keep a sync history.
type SyncRecorder interface {
	RecordSync(record *models.SyncRecord) error
	SyncHistory(playlistID, platform string) ([]*models.SyncRecord, error)
}

// Stats summarizes a store.
type Stats struct {
	Backend        string `json:"backend"`
	TotalPlaylists int    `json:"total_playlists"`
	TotalTracks    int    `json:"total_tracks"`
	Location       string `json:"location"`
}

const (
	FileBackend   = "file"
	SQLiteBackend = "sqlite"
)

// New opens the backend selected by cfg.
func New(cfg *shared.Config, logger *log.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Storage.Backend {
	case SQLiteBackend:
		return OpenSQLStore(cfg.Database, logger)
	default:
		return NewFileStore(cfg.Storage.Path, logger)
	}
}

func exportPlaylist(s Store, id, path string, format formatter.Format) error {
	playlist, err := s.Load(id)
	if err != nil {
		return err
	}
	return formatter.WriteFile(playlist, path, format)
}

func importPlaylist(path string, format formatter.Format) (*models.Playlist, error) {
	return formatter.ReadFile(path, format)
}

// matches applies the Search rules to a summary.
func matches(s models.PlaylistSummary, query string, tags []string) bool {
	if query = strings.TrimSpace(query); query != "" &&
		!strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range s.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// checkID rejects identifiers that cannot be used as a record key.
func checkID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: invalid playlist id %q", shared.ErrInvalidInput, id)
	}
	return nil
}
