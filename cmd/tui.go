package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI signs in and launches the interactive playlist browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	f, err := r.exportFormat(cmd)
	if err != nil {
		return err
	}

	res, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	// Logs would tear the alternate screen apart, so they go to a file while the UI runs.
	logPath := filepath.Join(os.TempDir(), "spx", "spx-tui.log")
	fileLogger, logFile, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	bulk := tasks.BulkExportOpts{
		Format:     f,
		NumWorkers: r.config.Export.Workers,
		RateLimit:  r.config.HTTP.RequestsPerSecond,
	}
	if cmd.IsSet("output") {
		bulk.OutputDir = cmd.String("output")
	}

	model := ui.NewModel(ctx, ui.Opts{
		Service:   r.spotify(),
		Engine:    r.engine(),
		Token:     res.Token().AccessToken,
		Format:    f,
		Bulk:      bulk,
		Copy:      r.copy,
		Clock:     r.clock,
		Playlists: res.Playlists,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
