package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plylist/internal/manager"
	"github.com/desertthunder/plylist/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	SyncView
	ResultView
)

// Library is the part of [manager.Manager] the browser reads and pushes through.
type Library interface {
	List(query string, tags []string) ([]models.PlaylistSummary, error)
	Get(id string) (*models.Playlist, error)
	SyncToPlatform(ctx context.Context, id, platform string) (*manager.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	library      Library
	platform     string
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     *models.Playlist
	ready        bool
	spinner      spinner.Model
	result       *manager.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a browser over library. An empty platform disables pushing.
func NewModel(ctx context.Context, library Library, platform string) *Model {
	return &Model{
		ctx:      ctx,
		view:     PlaylistListView,
		library:  library,
		platform: platform,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the local playlists.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.ready {
			m.playlistList.SetSize(m.listSize())
		}
		if m.selected != nil {
			m.trackList.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsLoaded:
		data := msg.data.(playlistsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.summaries))
		for i, s := range data.summaries {
			items[i] = playlistItem{summary: s}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.playlistList.SetSize(m.listSize())
		m.ready = true
		m.view = PlaylistListView
		return m, nil

	case MsgPlaylistLoaded:
		data := msg.data.(playlistLoaded)
		if data.err != nil {
			m.err = data.err
			m.view = PlaylistListView
			return m, nil
		}
		m.err = nil
		m.selected = data.playlist
		items := make([]list.Item, len(data.playlist.Tracks))
		for i, t := range data.playlist.Tracks {
			items[i] = trackItem{track: t}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s' (%s)", data.playlist.Name, data.playlist.DurationString())
		m.trackList.SetSize(m.listSize())
		m.view = TrackListView
		return m, nil

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.ready {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				return m, m.loadPlaylist(pl.summary.ID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = PlaylistListView
			return m, nil
		case key.Matches(msg, m.keys.push):
			if m.platform != "" {
				m.view = ConfirmView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, tea.Batch(m.spinner.Tick, m.push())
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.selected = nil
		m.result = nil
		m.err = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		if !m.ready {
			return m, nil
		}
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 0), max(m.height-8, 0)
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		return playlistsLoadedMsg(m.library.List("", nil))
	}
}

func (m *Model) loadPlaylist(id string) tea.Cmd {
	return func() tea.Msg {
		return playlistLoadedMsg(m.library.Get(id))
	}
}

func (m *Model) push() tea.Cmd {
	id, platform := m.selected.ID, m.platform
	return func() tea.Msg {
		return syncCompleteMsg(m.library.SyncToPlatform(m.ctx, id, platform))
	}
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	keys := []key.Binding{m.keys.back, m.keys.quit}
	if m.platform != "" {
		keys = append([]key.Binding{m.keys.push}, keys...)
	}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(keys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Push '%s' to %s?", m.selected.Name, m.platform))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.selected.Name, m.selected.TrackCount())
	if remoteID, ok := m.selected.PlatformID(m.platform); ok {
		info += styles.warn.Render(fmt.Sprintf("Remote playlist %s will be replaced.", remoteID)) + "\n"
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Pushing to %s", m.platform))
	return fmt.Sprintf("%s\n\n%s Resolving and uploading %d tracks...", title, m.spinner.View(), m.selected.TrackCount())
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Push failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	verb := "Updated"
	if m.result.Created {
		verb = "Created"
	}
	title := styles.ok.Render(fmt.Sprintf("✓ %s %s playlist %s", verb, m.result.Platform, m.result.PlatformID))
	info := fmt.Sprintf("\nTracks: %d/%d found", m.result.TracksTotal-m.result.TracksMissing, m.result.TracksTotal)

	var missing string
	if m.result.TracksMissing > 0 {
		missing = "\n\n" + styles.warn.Render(fmt.Sprintf("Not found on %s:", m.result.Platform))
		for _, t := range m.result.Playlist.Tracks {
			if _, ok := t.PlatformID(m.result.Platform); !ok {
				missing += fmt.Sprintf("\n  • %s", t)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, missing, helpView)
}
