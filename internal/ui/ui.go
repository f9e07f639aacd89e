package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/jonboulle/clockwork"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ExportView
	ResultView
)

// Opts configures a [Model].
//
// Format applies to single playlist downloads, Bulk to exporting every playlist. Copy
// defaults to [CopyToClipboard]. When Playlists is nil the list is fetched on Init.
type Opts struct {
	Service   services.Service
	Engine    *tasks.ExportEngine
	Token     string
	Format    formatter.Format
	Bulk      tasks.BulkExportOpts
	Copy      func(string) error
	Clock     clockwork.Clock
	Playlists []models.PlaylistSummary
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	srv       services.Service
	engine    *tasks.ExportEngine
	token     string
	format    formatter.Format
	bulk      tasks.BulkExportOpts
	copy      func(string) error
	clock     clockwork.Clock
	width     int
	height    int
	loaded    bool
	loading   string
	status    string
	statusErr bool

	playlists    []models.PlaylistSummary
	playlistList list.Model
	selected     models.PlaylistSummary
	tracks       []models.Track
	trackList    list.Model

	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan Msg
	progress     tasks.ProgressUpdate
	bar          progress.Model
	result       *tasks.BulkExportResult
	err          error

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	if opts.Copy == nil {
		opts.Copy = CopyToClipboard
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.Engine == nil {
		opts.Engine = tasks.NewExportEngine(opts.Service, opts.Clock, nil)
	}

	m := &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		srv:          opts.Service,
		engine:       opts.Engine,
		token:        opts.Token,
		format:       opts.Format,
		bulk:         opts.Bulk,
		copy:         opts.Copy,
		clock:        opts.Clock,
		playlistList: newList(nil, "Playlists"),
		trackList:    newList(nil, "Tracks"),
		bar:          progress.New(progress.WithDefaultGradient()),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	if opts.Playlists != nil {
		m.setPlaylists(opts.Playlists)
	}
	return m
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
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// State is the current view.
func (m *Model) State() ViewState { return m.view }

// Init fetches the playlist list unless it was handed in.
func (m *Model) Init() tea.Cmd {
	if m.loaded {
		return nil
	}
	m.loading = "Loading playlists..."
	return tea.Batch(m.spinner.Tick, m.fetchPlaylists())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ExportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		m.loading = ""
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.setPlaylists(data.playlists)
		return m, nil

	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		m.loading = ""
		if data.err != nil {
			m.setStatus(true, "Could not load tracks for %q: %v. Press enter to retry.", data.playlist.Name, data.err)
			return m, nil
		}
		m.selected = data.playlist
		m.tracks = data.tracks
		m.trackList = newList(trackItems(data.tracks), fmt.Sprintf("%s (%d tracks)", data.playlist.Name, len(data.tracks)))
		m.resize()
		m.status = ""
		m.view = TrackListView
		return m, nil

	case MsgPlaylistSaved:
		data := msg.data.(playlistSaved)
		if data.err != nil {
			m.setStatus(true, "Download failed: %v", data.err)
		} else {
			m.setStatus(false, "Saved %s", data.path)
		}
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		var cmd tea.Cmd
		if m.progress.Phase == tasks.ExportPlaylist && m.progress.Total > 0 {
			cmd = m.bar.SetPercent(float64(m.progress.Step) / float64(m.progress.Total))
		}
		return m, tea.Batch(cmd, m.waitForProgress())

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan, m.doneChan = nil, nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.loading != "" {
			return m, nil
		}
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.loading = fmt.Sprintf("Loading tracks for %s...", item.playlist.Name)
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, m.fetchTracks(item.playlist))
		}
		return m, nil
	case key.Matches(msg, m.keys.exportAll):
		if len(m.playlists) == 0 || m.loading != "" {
			return m, nil
		}
		m.view = ExportView
		return m, m.startExport()
	}

	return m.updateLists(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.copy):
		if err := m.copy(formatter.ToTextList(m.tracks)); err != nil {
			if errors.Is(err, shared.ErrClipboardUnavailable) {
				m.setStatus(true, "Clipboard unavailable. Use d to download the list instead.")
			} else {
				m.setStatus(true, "Copy failed: %v", err)
			}
			return m, nil
		}
		m.setStatus(false, "Copied %d tracks to the clipboard", len(m.tracks))
		return m, nil
	case key.Matches(msg, m.keys.download):
		return m, m.savePlaylist()
	}

	return m.updateLists(msg)
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.srv.Playlists(m.ctx, m.token)
		return playlistsFetchedMsg(playlists, err)
	}
}

// fetchTracks loads every page of the playlist; each selection fetches again.
func (m *Model) fetchTracks(p models.PlaylistSummary) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.srv.PlaylistTracks(m.ctx, m.token, p.ID)
		return tracksFetchedMsg(p, tracks, err)
	}
}

func (m *Model) savePlaylist() tea.Cmd {
	dir, f, name, tracks, now := m.bulk.OutputDir, m.format, m.selected.Name, m.tracks, m.clock.Now()
	if dir == "" {
		dir = "."
	}
	return func() tea.Msg {
		path, err := formatter.WriteExport(dir, f, name, tracks, now)
		return playlistSavedMsg(path, err)
	}
}

func (m *Model) startExport() tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan Msg, 1)
	m.progressChan, m.doneChan = progressChan, doneChan
	m.progress = tasks.ProgressUpdate{Message: "Starting export..."}

	ctx, engine, token, playlists, opts := m.ctx, m.engine, m.token, m.playlists, m.bulk
	go func() {
		result, err := engine.ExportPlaylists(ctx, progressChan, token, playlists, opts)
		close(progressChan)
		doneChan <- exportCompleteMsg(result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}
		if update, ok := <-progressChan; ok {
			return progressUpdateMsg(update)
		}
		return <-doneChan
	}
}

func (m *Model) setPlaylists(playlists []models.PlaylistSummary) {
	m.loaded = true
	m.playlists = playlists
	m.playlistList = newList(playlistItems(playlists), "Playlists")
	m.resize()
}

func (m *Model) setStatus(isErr bool, format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = isErr
}

func (m *Model) resize() {
	if m.width <= 4 || m.height <= 8 {
		return
	}
	m.playlistList.SetSize(m.width-4, m.height-8)
	m.trackList.SetSize(m.width-4, m.height-8)
	m.bar.Width = m.width - 4
}

func newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

func (m *Model) renderStatus() string {
	switch {
	case m.loading != "":
		return m.spinner.View() + " " + m.loading
	case m.status == "":
		return ""
	case m.statusErr:
		return styles.err.Render(m.status)
	default:
		return styles.ok.Render(m.status)
	}
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.exportAll, m.keys.quit})
	if m.loaded && len(m.playlists) == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render(auth.NoPlaylistsNotice), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}
	if !m.loaded {
		return fmt.Sprintf("%s\n\n%s", m.renderStatus(), helpView)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.playlistList.View(), m.renderStatus(), helpView)
}

func (m *Model) renderTrackList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.copy, m.keys.download, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.trackList.View(), m.renderStatus(), helpView)
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting playlists")
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.bar.View(), m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Export failed: %v\n\nPress esc to go back, q to quit", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress esc to go back, q to quit")
	}

	title := styles.ok.Render("✓ Export complete")
	info := fmt.Sprintf("\nExported %d of %d playlists to %s\nManifest: %s",
		m.result.SuccessfulExports, m.result.TotalPlaylists, m.result.OutputDirectory, m.result.ManifestPath)

	var failed string
	if m.result.FailedExports > 0 {
		failed = "\n\n" + styles.warn.Render(fmt.Sprintf("%d playlists failed:", m.result.FailedExports))
		for _, r := range m.result.Results {
			if !r.Success {
				failed += fmt.Sprintf("\n  • %s: %v", r.PlaylistName, r.Error)
			}
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
