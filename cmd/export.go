package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

type tracksOutput struct {
	Playlist models.PlaylistSummary `json:"playlist"`
	Tracks   []models.Track         `json:"tracks"`
}

// Playlists lists the playlists of the signed-in user.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	token, err := r.accessToken(ctx)
	if err != nil {
		return err
	}

	playlists, err := r.spotify().Playlists(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		if playlists == nil {
			playlists = []models.PlaylistSummary{}
		}
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	return r.writePlain("%s", ui.PlaylistTable(playlists))
}

// Tracks prints the numbered text list of one playlist, optionally copying it to the clipboard.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	token, err := r.accessToken(ctx)
	if err != nil {
		return err
	}

	playlist, err := r.engine().FindPlaylist(ctx, token, cmd.String("id"))
	if err != nil {
		return err
	}

	tracks, err := r.spotify().PlaylistTracks(ctx, token, playlist.ID)
	if err != nil {
		return fmt.Errorf("failed to load tracks for %q: %w", playlist.Name, err)
	}

	if cmd.Bool("json") {
		if tracks == nil {
			tracks = []models.Track{}
		}
		return r.writeJSON(tracksOutput{Playlist: *playlist, Tracks: tracks}, true)
	}

	list := formatter.ToTextList(tracks)
	if list != "" {
		r.writePlain("%s\n", list)
	}

	if cmd.Bool("copy") {
		r.copyList(list, len(tracks))
	}
	return nil
}

// Export writes one playlist to a file in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	f, err := r.exportFormat(cmd)
	if err != nil {
		return err
	}

	token, err := r.accessToken(ctx)
	if err != nil {
		return err
	}

	e := r.engine()
	playlist, err := e.FindPlaylist(ctx, token, cmd.String("id"))
	if err != nil {
		return err
	}

	res, err := e.ExportPlaylist(ctx, nil, token, *playlist, r.exportDir(cmd), f)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d tracks from %q to %s\n", res.TrackCount, res.PlaylistName, res.File)

	if cmd.Bool("copy") {
		r.copyList(formatter.ToTextList(res.Tracks), len(res.Tracks))
	}
	return nil
}

// ExportAll exports every playlist with a worker pool and reports progress as it goes.
func (r *Runner) ExportAll(ctx context.Context, cmd *cli.Command) error {
	f, err := r.exportFormat(cmd)
	if err != nil {
		return err
	}

	token, err := r.accessToken(ctx)
	if err != nil {
		return err
	}

	workers := r.config.Export.Workers
	if cmd.IsSet("workers") {
		workers = int(cmd.Int("workers"))
	}
	rateLimit := r.config.HTTP.RequestsPerSecond
	if cmd.IsSet("rate") {
		rateLimit, err = strconv.ParseFloat(cmd.String("rate"), 64)
		if err != nil || rateLimit < 0 {
			return fmt.Errorf("%w: --rate must be a non-negative number, got %q", shared.ErrInvalidArgument, cmd.String("rate"))
		}
	}

	opts := tasks.BulkExportOpts{
		Format:     f,
		NumWorkers: workers,
		RateLimit:  rateLimit,
	}
	if cmd.IsSet("output") {
		opts.OutputDir = cmd.String("output")
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writeProgress(update)
		}
	}()

	result, err := r.engine().BulkExport(ctx, progress, token, opts)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Exported %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %v\n", res.PlaylistName, res.Error)
		}
	}

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlists failed to export", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	if update.Phase == tasks.ExportPlaylist {
		r.writePlain("  %s\n", update.Message)
		return
	}
	r.logger.Debug(update.Message, "phase", update.Phase)
}

// copyList copies the text list, falling back to a hint when no clipboard is available.
func (r *Runner) copyList(list string, count int) {
	if err := r.copy(list); err != nil {
		if errors.Is(err, shared.ErrClipboardUnavailable) {
			r.writePlain("⚠ Clipboard unavailable. Use `spx export` to save the list to a file instead.\n")
			return
		}
		r.logger.Warn("failed to copy track list", "error", err)
		return
	}
	r.writePlain("✓ Copied %d tracks to the clipboard\n", count)
}

func (r *Runner) exportFormat(cmd *cli.Command) (formatter.Format, error) {
	raw := r.config.Export.Format
	if cmd.IsSet("format") {
		raw = cmd.String("format")
	}
	return formatter.ParseFormat(raw)
}

func (r *Runner) exportDir(cmd *cli.Command) string {
	dir := r.config.Export.Dir
	if cmd.IsSet("output") {
		dir = cmd.String("output")
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Clean(dir)
}
