// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// MockPlatform is an in-memory test double for platforms.Platform.
//
// Catalog tracks must carry an id for the mock's name. Remote playlists live in Remote, keyed by
// their platform id. Set the *Err fields to make the matching call fail.
type MockPlatform struct {
	mu           sync.Mutex
	PlatformName string
	Catalog      []*models.Track
	Remote       map[string]*models.Playlist

	AuthErr   error
	SearchErr error
	CreateErr error
	UpdateErr error

	calls  map[string]int
	nextID int
	authed bool
}

// NewMockPlatform creates a mock named name searching catalog.
func NewMockPlatform(name string, catalog ...*models.Track) *MockPlatform {
	return &MockPlatform{
		PlatformName: name,
		Catalog:      catalog,
		Remote:       map[string]*models.Playlist{},
		calls:        map[string]int{},
	}
}

// CatalogTrack builds a catalog entry carrying platformID for the platform name.
func CatalogTrack(t *testing.T, name, title, artist, platformID string) *models.Track {
	t.Helper()
	track, err := models.NewTrack(title, artist)
	if err != nil {
		t.Fatalf("NewTrack(%q, %q) error = %v", title, artist, err)
	}
	track.SetPlatformID(name, platformID)
	return track
}

// Calls returns how many times method was invoked.
func (m *MockPlatform) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockPlatform) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MockPlatform) Name() string { return m.PlatformName }

func (m *MockPlatform) Authenticate(ctx context.Context) error {
	m.record("Authenticate")
	if m.AuthErr != nil {
		return m.AuthErr
	}
	m.authed = true
	return nil
}

func (m *MockPlatform) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	m.record("SearchTrack")
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	for _, c := range m.Catalog {
		if containsFold(c.Title, title) && containsFold(c.Artist, artist) {
			found := c.Clone()
			found.ID = shared.GenerateID()
			return found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, title, artist)
}

func (m *MockPlatform) GetTrack(ctx context.Context, platformID string) (*models.Track, error) {
	m.record("GetTrack")
	for _, c := range m.Catalog {
		if id, _ := c.PlatformID(m.PlatformName); id == platformID {
			return c.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, platformID)
}

func (m *MockPlatform) CreatePlaylist(ctx context.Context, playlist *models.Playlist) (string, error) {
	m.record("CreatePlaylist")
	if m.CreateErr != nil {
		return "", m.CreateErr
	}

	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("%s-pl-%d", m.PlatformName, m.nextID)
	m.mu.Unlock()

	m.store(id, playlist)
	return id, nil
}

func (m *MockPlatform) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	m.record("UpdatePlaylist")
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	id, ok := playlist.PlatformID(m.PlatformName)
	if !ok {
		return fmt.Errorf("%w: no %s id", shared.ErrInvalidInput, m.PlatformName)
	}
	if _, ok := m.remote(id); !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	m.store(id, playlist)
	return nil
}

func (m *MockPlatform) DeletePlaylist(ctx context.Context, platformID string) error {
	m.record("DeletePlaylist")
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Remote[platformID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformID)
	}
	delete(m.Remote, platformID)
	return nil
}

// GetPlaylist returns a copy of the remote playlist under a fresh local id.
func (m *MockPlatform) GetPlaylist(ctx context.Context, platformID string) (*models.Playlist, error) {
	m.record("GetPlaylist")
	remote, ok := m.remote(platformID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformID)
	}
	pulled := remote.Clone()
	pulled.ID = shared.GenerateID()
	for _, t := range pulled.Tracks {
		t.ID = shared.GenerateID()
	}
	return pulled, nil
}

func (m *MockPlatform) GetUserPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	m.record("GetUserPlaylists")
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Playlist, 0, len(m.Remote))
	for _, p := range m.Remote {
		c := p.Clone()
		c.Tracks = []*models.Track{}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockPlatform) AddTracksToPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	m.record("AddTracksToPlaylist")
	m.mu.Lock()
	defer m.mu.Unlock()
	remote, ok := m.Remote[platformPlaylistID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformPlaylistID)
	}
	for _, id := range trackIDs {
		for _, c := range m.Catalog {
			if pid, _ := c.PlatformID(m.PlatformName); pid == id {
				remote.Tracks = append(remote.Tracks, c.Clone())
			}
		}
	}
	return nil
}

func (m *MockPlatform) RemoveTracksFromPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	m.record("RemoveTracksFromPlaylist")
	m.mu.Lock()
	defer m.mu.Unlock()
	remote, ok := m.Remote[platformPlaylistID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformPlaylistID)
	}
	drop := map[string]bool{}
	for _, id := range trackIDs {
		drop[id] = true
	}
	kept := remote.Tracks[:0]
	for _, t := range remote.Tracks {
		if id, _ := t.PlatformID(m.PlatformName); !drop[id] {
			kept = append(kept, t)
		}
	}
	remote.Tracks = kept
	return nil
}

// store keeps the tracks that resolve against the catalog, recording their ids on the local tracks.
func (m *MockPlatform) store(id string, playlist *models.Playlist) {
	remote := playlist.Clone()
	remote.Tracks = remote.Tracks[:0]
	for _, t := range playlist.Tracks {
		if _, ok := t.PlatformID(m.PlatformName); !ok {
			found, err := m.SearchTrack(context.Background(), t.Title, t.Artist)
			if err != nil {
				continue
			}
			pid, _ := found.PlatformID(m.PlatformName)
			t.SetPlatformID(m.PlatformName, pid)
		}
		remote.Tracks = append(remote.Tracks, t.Clone())
	}
	remote.SetPlatformID(m.PlatformName, id)

	m.mu.Lock()
	m.Remote[id] = remote
	m.mu.Unlock()
}

func (m *MockPlatform) remote(id string) (*models.Playlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Remote[id]
	return p, ok
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
