package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// SyncDirection is push (local to platform) or pull (platform to local).
type SyncDirection string

const (
	SyncPush SyncDirection = "push"
	SyncPull SyncDirection = "pull"
)

// SyncRecord is one push or pull of a playlist against a platform.
type SyncRecord struct {
	ID                 string        `json:"id"`
	PlaylistID         string        `json:"playlist_id"`
	Platform           string        `json:"platform"`
	Direction          SyncDirection `json:"direction"`
	PlatformPlaylistID string        `json:"platform_playlist_id"`
	TracksTotal        int           `json:"tracks_total"`
	TracksMissing      int           `json:"tracks_missing"`
	Error              string        `json:"error,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// NewSyncRecord starts a record for playlist, stamped now.
func NewSyncRecord(playlistID, platform string, direction SyncDirection) *SyncRecord {
	return &SyncRecord{
		ID:         shared.GenerateID(),
		PlaylistID: playlistID,
		Platform:   platform,
		Direction:  direction,
		CreatedAt:  time.Now().UTC(),
	}
}

// Succeeded reports whether the sync finished without error.
func (r *SyncRecord) Succeeded() bool {
	return r.Error == ""
}

func (r *SyncRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.PlaylistID) == "":
		return fmt.Errorf("%w: sync record requires a playlist id", shared.ErrInvalidInput)
	case strings.TrimSpace(r.Platform) == "":
		return fmt.Errorf("%w: sync record requires a platform", shared.ErrInvalidInput)
	case r.Direction != SyncPush && r.Direction != SyncPull:
		return fmt.Errorf("%w: unknown sync direction %q", shared.ErrInvalidInput, r.Direction)
	}
	return nil
}
