package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// Playlist is an ordered list of tracks. Order is play order; the same track may appear more than once.
type Playlist struct {
	ID          string            `json:"playlist_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tracks      []*Track          `json:"tracks"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	PlatformIDs map[string]string `json:"platform_ids"`
	Metadata    Metadata          `json:"metadata"`
	Tags        []string          `json:"tags"`
}

// PlaylistSummary is the index record returned by listings and searches.
type PlaylistSummary struct {
	ID         string    `json:"playlist_id"`
	Name       string    `json:"name"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Tags       []string  `json:"tags"`
}

// NewPlaylist creates an empty playlist with a fresh identifier.
func NewPlaylist(name, description string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	p := &Playlist{
		ID:          shared.GenerateID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.ensure()
	return p, nil
}

func (p *Playlist) ensure() {
	if p.Tracks == nil {
		p.Tracks = []*Track{}
	}
	if p.PlatformIDs == nil {
		p.PlatformIDs = map[string]string{}
	}
	if p.Metadata == nil {
		p.Metadata = Metadata{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// touch refreshes UpdatedAt, stepping past the previous value if the clock has not advanced.
func (p *Playlist) touch() {
	now := time.Now().UTC()
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Nanosecond)
	}
	p.UpdatedAt = now
}

// Validate checks required fields on the playlist and each of its tracks.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	for i, t := range p.Tracks {
		if t == nil {
			return fmt.Errorf("%w: nil track at index %d", shared.ErrInvalidInput, i)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy that keeps the playlist and track IDs.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Tracks = make([]*Track, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		c.Tracks = append(c.Tracks, t.Clone())
	}
	c.PlatformIDs = make(map[string]string, len(p.PlatformIDs))
	for k, v := range p.PlatformIDs {
		c.PlatformIDs[k] = v
	}
	c.Metadata = p.Metadata.Clone()
	c.Tags = append([]string{}, p.Tags...)
	return &c
}

// TrackCount returns the number of tracks.
func (p *Playlist) TrackCount() int {
	return len(p.Tracks)
}

// AddTrack appends t.
func (p *Playlist) AddTrack(t *Track) error {
	if t == nil {
		return fmt.Errorf("%w: nil track", shared.ErrInvalidInput)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.ensure()
	p.Tracks = append(p.Tracks, t)
	p.touch()
	return nil
}

// RemoveTrack removes every occurrence of the track with trackID and reports whether any was removed.
func (p *Playlist) RemoveTrack(trackID string) bool {
	kept := p.Tracks[:0]
	for _, t := range p.Tracks {
		if t.ID != trackID {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(p.Tracks)
	for i := len(kept); i < len(p.Tracks); i++ {
		p.Tracks[i] = nil
	}
	p.Tracks = kept
	if removed {
		p.touch()
	}
	return removed
}

// RemoveTrackAt removes and returns the track at index.
func (p *Playlist) RemoveTrackAt(index int) (*Track, error) {
	if index < 0 || index >= len(p.Tracks) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", shared.ErrIndexOutOfRange, index, len(p.Tracks))
	}
	t := p.Tracks[index]
	p.Tracks = append(p.Tracks[:index], p.Tracks[index+1:]...)
	p.touch()
	return t, nil
}

// Track returns the first track with trackID, or nil.
func (p *Playlist) Track(trackID string) *Track {
	for _, t := range p.Tracks {
		if t.ID == trackID {
			return t
		}
	}
	return nil
}

// MoveTrack moves the track at from to position to. Both indices must lie in [0, len);
// otherwise the playlist is left untouched.
func (p *Playlist) MoveTrack(from, to int) error {
	n := len(p.Tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d with %d tracks", shared.ErrIndexOutOfRange, from, to, n)
	}

	t := p.Tracks[from]
	p.Tracks = append(p.Tracks[:from], p.Tracks[from+1:]...)
	p.Tracks = append(p.Tracks[:to], append([]*Track{t}, p.Tracks[to:]...)...)
	p.touch()
	return nil
}

// Clear removes all tracks.
func (p *Playlist) Clear() {
	p.Tracks = []*Track{}
	p.touch()
}

// Rename changes the playlist name.
func (p *Playlist) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	p.Name = name
	p.touch()
	return nil
}

// SetDescription replaces the description.
func (p *Playlist) SetDescription(description string) {
	p.Description = description
	p.touch()
}

// AddTag appends tag unless it is blank or already present.
func (p *Playlist) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || p.HasTag(tag) {
		return false
	}
	p.Tags = append(p.Tags, tag)
	p.touch()
	return true
}

// RemoveTag removes tag and reports whether it was present.
func (p *Playlist) RemoveTag(tag string) bool {
	for i, existing := range p.Tags {
		if existing == tag {
			p.Tags = append(p.Tags[:i], p.Tags[i+1:]...)
			p.touch()
			return true
		}
	}
	return false
}

// HasTag reports whether tag is present.
func (p *Playlist) HasTag(tag string) bool {
	for _, existing := range p.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// PlatformID returns the identifier of this playlist on platform.
func (p *Playlist) PlatformID(platform string) (string, bool) {
	id, ok := p.PlatformIDs[platform]
	return id, ok && id != ""
}

// SetPlatformID associates the playlist with its identifier on platform.
func (p *Playlist) SetPlatformID(platform, id string) {
	if p.PlatformIDs == nil {
		p.PlatformIDs = map[string]string{}
	}
	p.PlatformIDs[platform] = id
	p.touch()
}

// Duration returns the sum of known track durations in milliseconds.
func (p *Playlist) Duration() int {
	total := 0
	for _, t := range p.Tracks {
		total += t.DurationMs
	}
	return total
}

// DurationString renders the total duration as "1h 2m 3s", "2m 3s" or "3s", or "Unknown" when no duration is known.
func (p *Playlist) DurationString() string {
	ms := p.Duration()
	if ms == 0 {
		return "Unknown"
	}

	total := ms / 1000
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Summary returns the index record for this playlist.
func (p *Playlist) Summary() PlaylistSummary {
	return PlaylistSummary{
		ID:         p.ID,
		Name:       p.Name,
		TrackCount: len(p.Tracks),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Tags:       append([]string{}, p.Tags...),
	}
}

// UnmarshalJSON decodes a stored playlist, filling identifiers and timestamps the document lacks.
func (p *Playlist) UnmarshalJSON(data []byte) error {
	type plain Playlist
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*p = Playlist(decoded)
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = shared.GenerateID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.ensure()
	return nil
}
