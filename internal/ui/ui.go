package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/engine"
	"github.com/wavelet-player/wavelet/internal/formatter"
	"github.com/wavelet-player/wavelet/internal/playback"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	QueueView
)

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine *engine.Engine
	width  int
	height int

	playlistList list.Model
	playlists    []catalog.Playlist
	trackList    list.Model
	selected     *formatter.PlaylistExport
	queueList    list.Model

	status  string
	syncing bool
	err     error
	help    help.Model
	keys    keyMap
}

type playlistsLoadedMsg struct {
	playlists []catalog.Playlist
	err       error
}

type tracksLoadedMsg struct {
	export *formatter.PlaylistExport
	err    error
}

type notificationMsg engine.Notification

type syncDoneMsg struct {
	err error
}

// NewModel creates a new TUI model over the engine facade.
func NewModel(ctx context.Context, eng *engine.Engine) *Model {
	return &Model{
		ctx:    ctx,
		view:   PlaylistListView,
		engine: eng,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init loads the playlist list and starts listening for engine notifications.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadPlaylists(), m.waitForNotification())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.queueList.Width() == 0 {
			m.queueList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case QueueView:
			return m.handleQueueKeys(msg)
		}

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case tracksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = msg.export
		items := make([]list.Item, len(msg.export.Tracks))
		for i, track := range msg.export.Tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.export.Playlist.Name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case notificationMsg:
		note := engine.Notification(msg)
		m.status = note.Message
		if note.Kind == engine.NoteError {
			m.err = note.Err
		} else {
			m.err = nil
		}
		if m.view == QueueView {
			m.refreshQueue()
		}
		return m, m.waitForNotification()

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.loadPlaylists()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case TrackListView:
		body = m.renderTrackList()
	case QueueView:
		body = m.renderQueue()
	}

	return fmt.Sprintf("%s\n%s", body, m.renderStatusBar())
}

// handleGlobalKeys applies the playback and sync bindings that work in every view.
func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.pause):
		_, state := m.engine.NowPlaying()
		switch state {
		case playback.StatePlaying:
			m.err = m.engine.Pause()
		case playback.StatePaused:
			m.err = m.engine.Resume()
		}
		return nil, true

	case key.Matches(msg, m.keys.skip):
		m.engine.Skip(m.ctx)
		return nil, true

	case key.Matches(msg, m.keys.stop):
		m.err = m.engine.Stop()
		return nil, true

	case key.Matches(msg, m.keys.sync):
		if m.syncing {
			return nil, true
		}
		m.syncing = true
		return m.startSync(), true

	case key.Matches(msg, m.keys.queue):
		if m.view == QueueView {
			m.view = PlaylistListView
		} else {
			m.refreshQueue()
			m.view = QueueView
		}
		return nil, true
	}

	return nil, false
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		if selected, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.loadTracks(selected.playlist.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil

	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.err = m.engine.PlayNow(m.ctx, selected.track.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.enqueue):
		if selected, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.engine.Enqueue(selected.track.ID)
			m.status = fmt.Sprintf("Queued: %s", selected.track.Title)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil

	case key.Matches(msg, m.keys.remove):
		if selected, ok := m.queueList.SelectedItem().(queueItem); ok {
			m.engine.RemoveFromQueue(selected.entry.Seq)
			m.refreshQueue()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	case QueueView:
		m.queueList, cmd = m.queueList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.Playlists()
		return playlistsLoadedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) loadTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		export, err := m.engine.ExportPlaylist(playlistID)
		return tracksLoadedMsg{export: export, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{err: m.engine.SyncNow(m.ctx)}
	}
}

func (m *Model) waitForNotification() tea.Cmd {
	return func() tea.Msg {
		select {
		case note := <-m.engine.Notifications():
			return notificationMsg(note)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// refreshQueue rebuilds the queue list from the engine, resolving track titles.
func (m *Model) refreshQueue() {
	entries := m.engine.Queue()
	current, _ := m.engine.NowPlaying()

	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		title := entry.TrackID
		if track, err := m.engine.Track(entry.TrackID); err == nil {
			title = track.Title
		}
		items[i] = queueItem{
			entry:   entry,
			title:   title,
			current: current != nil && current.Seq == entry.Seq,
		}
	}

	m.queueList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.queueList.Title = "Play Queue"
	m.queueList.SetSize(m.width-4, m.height-8)
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.queue, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.enqueue, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderQueue() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.skip, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.queueList.View(), helpView)
}

// renderStatusBar shows now-playing state on the left and the latest engine
// notification on the right.
func (m *Model) renderStatusBar() string {
	entry, state := m.engine.NowPlaying()

	playing := "Nothing playing"
	if entry != nil {
		title := entry.TrackID
		if track, err := m.engine.Track(entry.TrackID); err == nil {
			title = track.Title
		}
		playing = fmt.Sprintf("%s: %s", state, title)
	}

	if m.err != nil {
		return fmt.Sprintf("%s  %s", styles.status.Render(playing), styles.err.Render(m.err.Error()))
	}
	if m.status != "" {
		return fmt.Sprintf("%s  %s", styles.status.Render(playing), styles.help.Render(m.status))
	}
	return styles.status.Render(playing)
}
