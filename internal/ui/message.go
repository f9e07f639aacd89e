package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
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
	MsgPlaylistsFetched MsgKind = iota
	MsgTracksFetched
	MsgPlaylistSaved
	MsgProgressUpdate
	MsgExportComplete
)

type playlistsFetched struct {
	playlists []models.PlaylistSummary
	err       error
}

type tracksFetched struct {
	playlist models.PlaylistSummary
	tracks   []models.Track
	err      error
}

type playlistSaved struct {
	path string
	err  error
}

type exportComplete struct {
	result *tasks.BulkExportResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.PlaylistSummary, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(playlist models.PlaylistSummary, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{playlist, tracks, err}}
}

// playlistSavedMsg is the constructor for [MsgPlaylistSaved]
func playlistSavedMsg(path string, err error) Msg {
	return Msg{kind: MsgPlaylistSaved, data: playlistSaved{path, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.BulkExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}
