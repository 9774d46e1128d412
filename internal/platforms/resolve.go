package platforms

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Resolution is the outcome of mapping local tracks to one platform's catalog.
type Resolution struct {
	IDs     []string        // platform track ids, in playlist order
	Missing []*models.Track // tracks with no catalog match, left out of IDs
}

// Resolve returns the platform track ids for tracks.
//
// Tracks already carrying an id for p are used directly. Others are searched by title and artist;
// a hit records the id (and the platform's metadata section) on the local track. Misses and
// per-track search failures only land in Missing. The only error returned is context cancellation.
func Resolve(ctx context.Context, p Platform, tracks []*models.Track, logger *log.Logger) (Resolution, error) {
	name := p.Name()
	logger = shared.WithLogger(logger, "platform", name)
	res := Resolution{IDs: make([]string, 0, len(tracks))}

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if id, ok := t.PlatformID(name); ok {
			res.IDs = append(res.IDs, id)
			continue
		}

		found, err := p.SearchTrack(ctx, t.Title, t.Artist)
		if err != nil {
			if !errors.Is(err, shared.ErrTrackNotFound) {
				logger.Warn("track search failed", "track", t.String(), "error", err)
			}
			res.Missing = append(res.Missing, t)
			continue
		}

		id, ok := found.PlatformID(name)
		if !ok {
			res.Missing = append(res.Missing, t)
			continue
		}

		t.SetPlatformID(name, id)
		if section := found.Metadata.Section(name); section != nil {
			if t.Metadata == nil {
				t.Metadata = models.Metadata{}
			}
			t.Metadata[name] = map[string]any(section.Clone())
		}
		res.IDs = append(res.IDs, id)
	}

	if len(res.Missing) > 0 {
		logger.Warn("some tracks could not be matched", "missing", len(res.Missing), "total", len(tracks))
	}
	return res, nil
}
