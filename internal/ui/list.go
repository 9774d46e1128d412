package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.PlaylistSummary] to implement [list.Item].
type playlistItem struct {
	summary models.PlaylistSummary
}

// FilterValue folds accents so typing "beyonce" finds "Beyoncé".
func (i playlistItem) FilterValue() string {
	return shared.FoldText(i.summary.Name + " " + strings.Join(i.summary.Tags, " "))
}

func (i playlistItem) Title() string { return i.summary.Name }

func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.summary.TrackCount)
	if len(i.summary.Tags) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.summary.Tags, ", "))
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track *models.Track
}

func (i trackItem) FilterValue() string { return shared.FoldText(i.track.Title) }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := strings.Join(i.track.Artists(), ", ")
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	if i.track.DurationMs > 0 {
		desc = fmt.Sprintf("%s • %s", desc, shared.FormatDuration(i.track.DurationMs))
	}
	return desc
}
