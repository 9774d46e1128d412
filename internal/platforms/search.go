package platforms

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const defaultMemoSize = 512

// searchMemo remembers catalog search outcomes for one process. A nil entry records a miss.
type searchMemo struct {
	cache *lru.Cache[string, *models.Track]
}

func newSearchMemo(size int) *searchMemo {
	if size <= 0 {
		size = defaultMemoSize
	}
	cache, err := lru.New[string, *models.Track](size)
	if err != nil {
		return &searchMemo{}
	}
	return &searchMemo{cache: cache}
}

// get returns a copy of the remembered result under a fresh track id, and whether anything was remembered.
func (m *searchMemo) get(title, artist string) (*models.Track, bool) {
	if m == nil || m.cache == nil {
		return nil, false
	}
	t, ok := m.cache.Get(memoKey(title, artist))
	if !ok {
		return nil, false
	}
	if t == nil {
		return nil, true
	}
	c := t.Clone()
	c.ID = shared.GenerateID()
	return c, true
}

func (m *searchMemo) put(title, artist string, t *models.Track) {
	if m == nil || m.cache == nil {
		return
	}
	var stored *models.Track
	if t != nil {
		stored = t.Clone()
	}
	m.cache.Add(memoKey(title, artist), stored)
}

// memoKey folds only what acceptCandidate ignores, so a remembered outcome is the one a live
// search for the same query would produce.
func memoKey(title, artist string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(artist))
}

// acceptCandidate is the live search heuristic: the candidate's title and artist must contain
// the queried title and artist, ignoring case. Looser than [models.Track.Matches]:
// catalogs decorate titles ("Song - Remastered 2011") and artists ("Artist & Guest").
func acceptCandidate(candidateTitle, candidateArtist, title, artist string) bool {
	return containsFold(candidateTitle, title) && containsFold(candidateArtist, artist)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// searchTerm joins title and artist for free-text catalog queries.
func searchTerm(title, artist string) string {
	return strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(artist))
}
