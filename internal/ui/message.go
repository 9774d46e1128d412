package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plylist/internal/manager"
	"github.com/desertthunder/plylist/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsLoaded MsgKind = iota
	MsgPlaylistLoaded
	MsgSyncComplete
)

type playlistsLoaded struct {
	summaries []models.PlaylistSummary
	err       error
}

type playlistLoaded struct {
	playlist *models.Playlist
	err      error
}

type syncComplete struct {
	result *manager.SyncResult
	err    error
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(summaries []models.PlaylistSummary, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlistsLoaded{summaries, err}}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(playlist *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: playlistLoaded{playlist, err}}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *manager.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}
