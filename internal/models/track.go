package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// Track is a single recording, identified locally by an immutable ID and remotely by one identifier per platform.
//
// DurationMs of zero means unknown.
type Track struct {
	ID                string            `json:"track_id"`
	Title             string            `json:"title"`
	Artist            string            `json:"artist"`
	Album             string            `json:"album,omitempty"`
	DurationMs        int               `json:"duration_ms,omitempty"`
	ISRC              string            `json:"isrc,omitempty"`
	PlatformIDs       map[string]string `json:"platform_ids"`
	AddedAt           time.Time         `json:"added_at"`
	AdditionalArtists []string          `json:"additional_artists"`
	Metadata          Metadata          `json:"metadata"`
}

// NewTrack creates a track with a fresh identifier. Title and artist are trimmed and required.
func NewTrack(title, artist string) (*Track, error) {
	t := &Track{
		ID:     shared.GenerateID(),
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.AddedAt = time.Now().UTC()
	t.ensure()
	return t, nil
}

// Validate checks required fields.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: track title is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(t.Artist) == "" {
		return fmt.Errorf("%w: track artist is required", shared.ErrInvalidInput)
	}
	if t.DurationMs < 0 {
		return fmt.Errorf("%w: negative duration %d", shared.ErrInvalidInput, t.DurationMs)
	}
	return nil
}

func (t *Track) ensure() {
	if t.PlatformIDs == nil {
		t.PlatformIDs = map[string]string{}
	}
	if t.AdditionalArtists == nil {
		t.AdditionalArtists = []string{}
	}
	if t.Metadata == nil {
		t.Metadata = Metadata{}
	}
}

// Matches reports whether t and other are the same recording.
//
// When both carry an ISRC, ISRC equality decides alone. Otherwise title and artist must be
// equal after trimming and lowercasing. No substring matching happens here.
func (t *Track) Matches(other *Track) bool {
	if other == nil {
		return false
	}
	if t.ISRC != "" && other.ISRC != "" {
		return t.ISRC == other.ISRC
	}
	return normalize(t.Title) == normalize(other.Title) && normalize(t.Artist) == normalize(other.Artist)
}

// MatchKey is the "title|artist" key used for content deduplication.
func (t *Track) MatchKey() string {
	return normalize(t.Title) + "|" + normalize(t.Artist)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PlatformID returns the identifier of this track on platform.
func (t *Track) PlatformID(platform string) (string, bool) {
	id, ok := t.PlatformIDs[platform]
	return id, ok && id != ""
}

// SetPlatformID records the identifier of this track on platform, replacing any previous one.
func (t *Track) SetPlatformID(platform, id string) {
	if t.PlatformIDs == nil {
		t.PlatformIDs = map[string]string{}
	}
	t.PlatformIDs[platform] = id
}

// Artists returns the primary artist followed by collaborators.
func (t *Track) Artists() []string {
	return append([]string{t.Artist}, t.AdditionalArtists...)
}

// Clone returns a deep copy that keeps the same ID.
func (t *Track) Clone() *Track {
	c := *t
	c.PlatformIDs = make(map[string]string, len(t.PlatformIDs))
	for k, v := range t.PlatformIDs {
		c.PlatformIDs[k] = v
	}
	c.AdditionalArtists = append([]string{}, t.AdditionalArtists...)
	c.Metadata = t.Metadata.Clone()
	return &c
}

// String renders "Title by Artist, Other (from Album)".
func (t *Track) String() string {
	s := fmt.Sprintf("%s by %s", t.Title, strings.Join(t.Artists(), ", "))
	if t.Album != "" {
		s += fmt.Sprintf(" (from %s)", t.Album)
	}
	return s
}

// UnmarshalJSON decodes a stored track, minting an identifier when the document has none.
func (t *Track) UnmarshalJSON(data []byte) error {
	type plain Track
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*t = Track(decoded)
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = shared.GenerateID()
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now().UTC()
	}
	t.ensure()
	return nil
}
