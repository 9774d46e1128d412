package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const indexFile = "index.json"

// FileStore keeps each playlist in {dir}/{id}.json and summaries in {dir}/index.json.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	index  map[string]models.PlaylistSummary
	logger *log.Logger
}

// NewFileStore opens (creating if needed) the store rooted at dir. A missing or unreadable index is rebuilt from the playlist files.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: storage path is required", shared.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %v", shared.ErrStorageUnavailable, dir, err)
	}

	s := &FileStore{
		dir:    dir,
		index:  map[string]models.PlaylistSummary{},
		logger: shared.WithLogger(logger, "store", FileBackend),
	}

	if err := s.loadIndex(); err != nil {
		s.logger.Warn("rebuilding playlist index", "error", err)
		if err := s.Rebuild(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the playlist document and updates the index.
func (s *FileStore) Save(playlist *models.Playlist) error {
	if err := checkID(playlist.ID); err != nil {
		return err
	}
	if err := playlist.Validate(); err != nil {
		return err
	}

	data, err := shared.MarshalJSON(playlist, true)
	if err != nil {
		return fmt.Errorf("failed to encode playlist: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path(playlist.ID), data); err != nil {
		return err
	}

	s.index[playlist.ID] = playlist.Summary()
	return s.saveIndex()
}

// Load reads a playlist document.
func (s *FileStore) Load(id string) (*models.Playlist, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	var playlist models.Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("%w: corrupt playlist %s: %v", shared.ErrInvalidInput, id, err)
	}
	return &playlist, nil
}

// Delete removes the playlist document and its index entry.
func (s *FileStore) Delete(id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	delete(s.index, id)
	return s.saveIndex()
}

// List returns every summary, oldest first.
func (s *FileStore) List() ([]models.PlaylistSummary, error) {
	return s.Search("", nil)
}

func (s *FileStore) Search(query string, tags []string) ([]models.PlaylistSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.PlaylistSummary{}
	for _, summary := range s.index {
		if matches(summary, query, tags) {
			out = append(out, summary)
		}
	}
	sortSummaries(out)
	return out, nil
}

func (s *FileStore) Export(id, path string, format formatter.Format) error {
	return exportPlaylist(s, id, path, format)
}

func (s *FileStore) Import(path string, format formatter.Format) (*models.Playlist, error) {
	return importPlaylist(path, format)
}

func (s *FileStore) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Backend: FileBackend, TotalPlaylists: len(s.index), Location: s.dir}
	for _, summary := range s.index {
		stats.TotalTracks += summary.TrackCount
	}
	return stats, nil
}

func (s *FileStore) Close() error {
	return nil
}

// Rebuild regenerates the index from the playlist documents on disk. Unreadable documents are skipped.
func (s *FileStore) Rebuild() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	index := map[string]models.PlaylistSummary{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == indexFile || filepath.Ext(name) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable playlist", "file", name, "error", err)
			continue
		}
		var playlist models.Playlist
		if err := json.Unmarshal(data, &playlist); err != nil {
			s.logger.Warn("skipping corrupt playlist", "file", name, "error", err)
			continue
		}
		if playlist.ID+".json" != name {
			s.logger.Warn("skipping playlist stored under the wrong name", "file", name, "id", playlist.ID)
			continue
		}
		index[playlist.ID] = playlist.Summary()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
	return s.saveIndex()
}

func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return s.initIndex()
	}
	if err != nil {
		return err
	}

	var summaries []models.PlaylistSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return fmt.Errorf("corrupt index: %w", err)
	}
	for _, summary := range summaries {
		s.index[summary.ID] = summary
	}
	return nil
}

// initIndex handles a directory without an index: empty stores get one written, others are rebuilt.
func (s *FileStore) initIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".json" {
			return errors.New("index missing")
		}
	}
	return s.saveIndex()
}

// saveIndex writes the index. Callers hold mu.
func (s *FileStore) saveIndex() error {
	summaries := make([]models.PlaylistSummary, 0, len(s.index))
	for _, summary := range s.index {
		summaries = append(summaries, summary)
	}
	sortSummaries(summaries)

	data, err := shared.MarshalJSON(summaries, true)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFile), data)
}

func sortSummaries(summaries []models.PlaylistSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}

// writeFileAtomic writes to a temporary file in the same directory and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}
	return nil
}
