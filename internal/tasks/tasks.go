// package tasks implements long-running playlist export operations.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jonboulle/clockwork"
)

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	TrackCount   int
	File         string
	Success      bool
	Error        error

	// Tracks is set by ExportPlaylist only; bulk exports drop them once written.
	Tracks []models.Track
}

// ExportEngine exports playlists of the signed-in user.
type ExportEngine struct {
	srv    services.Service
	clock  clockwork.Clock
	logger *log.Logger
}

// NewExportEngine creates an ExportEngine over srv. A nil clock uses the real clock.
func NewExportEngine(srv services.Service, clock clockwork.Clock, logger *log.Logger) *ExportEngine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{srv: srv, clock: clock, logger: shared.WithLogger(logger, "component", "export")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FindPlaylist resolves idOrName against the user's playlists, by id first and then by
// case-insensitive name.
func (e *ExportEngine) FindPlaylist(ctx context.Context, token, idOrName string) (*models.PlaylistSummary, error) {
	if e.srv == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrNotAuthenticated)
	}
	if strings.TrimSpace(idOrName) == "" {
		return nil, fmt.Errorf("%w: playlist id or name", shared.ErrMissingArgument)
	}

	playlists, err := e.srv.Playlists(ctx, token)
	if err != nil {
		return nil, err
	}

	for _, p := range playlists {
		if p.ID == idOrName {
			return &p, nil
		}
	}
	for _, p := range playlists {
		if strings.EqualFold(p.Name, idOrName) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: no playlist with id or name %q", shared.ErrPlaylistNotFound, idOrName)
}

// ExportPlaylist loads every track of playlist and writes it to dir in format f.
func (e *ExportEngine) ExportPlaylist(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	token string,
	playlist models.PlaylistSummary,
	dir string,
	f formatter.Format,
) (*PlaylistExportResult, error) {
	if e.srv == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrNotAuthenticated)
	}

	e.sendProgress(progress, fetchingTracksUpdate(1, 1, playlist.Name))
	tracks, err := e.srv.PlaylistTracks(ctx, token, playlist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks for %q: %w", playlist.Name, err)
	}

	path, err := formatter.WriteExport(dir, f, playlist.Name, tracks, e.clock.Now())
	if err != nil {
		return nil, err
	}

	res := &PlaylistExportResult{
		PlaylistID:   playlist.ID,
		PlaylistName: playlist.Name,
		TrackCount:   len(tracks),
		File:         path,
		Success:      true,
		Tracks:       tracks,
	}
	e.sendProgress(progress, exportCompletedUpdate(1, 1, playlist.Name, len(tracks)))
	e.logger.Debug("playlist exported", "playlist", playlist.ID, "tracks", len(tracks), "file", path)
	return res, nil
}

// writeTracks renders tracks in format f and writes them to dir/base.ext.
func (e *ExportEngine) writeTracks(dir, base string, f formatter.Format, name string, tracks []models.Track) (string, error) {
	data, err := formatter.Render(f, name, tracks, e.clock.Now())
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	path := filepath.Join(dir, base+"."+string(f))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}
