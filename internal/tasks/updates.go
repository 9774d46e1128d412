package tasks

import (
	"fmt"

	"github.com/desertthunder/plylist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLocal Phase = iota
	FetchRemote
	Compare
	SyncPlaylist
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchLocal:
		return "fetch_local"
	case FetchRemote:
		return "fetch_remote"
	case Compare:
		return "compare"
	case SyncPlaylist:
		return "sync_playlist"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchLocalUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLocal,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Loading local playlist %s...", id),
	}
}

func fetchRemoteUpdate(platform, remoteID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Fetching %s playlist %s...", platform, remoteID),
	}
}

func compareUpdate(c *Comparison) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d matched, %d local only, %d remote only", len(c.Matched), len(c.LocalOnly), len(c.RemoteOnly)),
		Data:    c,
	}
}

func syncingPlaylistUpdate(step, total int, s models.PlaylistSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing: %s...", step, total, s.Name),
	}
}

func syncCompletedUpdate(step, total int, res PlaylistSyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d/%d tracks)", step, total, res.Name, res.TracksTotal-res.TracksMissing, res.TracksTotal),
		Data:    res,
	}
}

func syncFailedUpdate(step, total int, res PlaylistSyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Name, res.Error),
		Data:    res,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
