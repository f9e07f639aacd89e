package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
	manifestBase   = "export_manifest"
	manifestName   = manifestBase + ".json"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, txt, csv, md
	OutputDir  string           // Base output directory (default: spotify_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Playlists started per second (default: 5)
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult // In playlist order
}

type exportJob struct {
	index    int
	playlist models.PlaylistSummary
	base     string
}

type manifestEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"trackCount"`
	File       string `json:"file,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type manifest struct {
	GeneratedAt string          `json:"generatedAt"`
	Format      string          `json:"format"`
	Total       int             `json:"total"`
	Successful  int             `json:"successful"`
	Failed      int             `json:"failed"`
	Playlists   []manifestEntry `json:"playlists"`
}

// BulkExport exports every playlist of the signed-in user.
//
// Playlists are exported by a pool of workers, paced by a token bucket. Each playlist's
// tracks are still fetched page by page. A failing playlist is recorded in the result and
// the manifest; the others continue.
func (e *ExportEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	token string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.srv == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrNotAuthenticated)
	}

	e.sendProgress(prog, fetchingPlaylistsUpdate())
	playlists, err := e.srv.Playlists(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	return e.ExportPlaylists(ctx, prog, token, playlists, opts)
}

// ExportPlaylists exports the given playlists with a worker pool and writes a manifest.
func (e *ExportEngine) ExportPlaylists(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	token string,
	playlists []models.PlaylistSummary,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spotify_export_%d", e.clock.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(playlists)
	result := &BulkExportResult{
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, total)
	results := make(chan indexedResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, limiter, token, jobs, results, opts)
	}

	for i, base := range uniqueBaseNames(playlists) {
		jobs <- exportJob{index: i, playlist: playlists[i], base: base}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexedResult, 0, total)
	for res := range results {
		collected = append(collected, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(len(collected), total, res.PlaylistName, res.TrackCount))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(len(collected), total, res.PlaylistName, res.Error))
		}
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	for _, res := range collected {
		result.Results = append(result.Results, res.PlaylistExportResult)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	e.sendProgress(prog, writingManifestUpdate(manifestPath))
	if err := e.writeManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished",
		"total", total, "successful", result.SuccessfulExports, "failed", result.FailedExports, "dir", opts.OutputDir)
	return result, nil
}

type indexedResult struct {
	PlaylistExportResult
	index int
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	token string,
	jobs <-chan exportJob,
	results chan<- indexedResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := indexedResult{
			index: job.index,
			PlaylistExportResult: PlaylistExportResult{
				PlaylistID:   job.playlist.ID,
				PlaylistName: job.playlist.Name,
			},
		}

		if err := limiter.Wait(ctx); err != nil {
			res.Error = fmt.Errorf("export canceled: %w", err)
			results <- res
			continue
		}

		tracks, err := e.srv.PlaylistTracks(ctx, token, job.playlist.ID)
		if err != nil {
			res.Error = fmt.Errorf("failed to load tracks: %w", err)
			results <- res
			continue
		}
		res.TrackCount = len(tracks)

		path, err := e.writeTracks(opts.OutputDir, job.base, opts.Format, job.playlist.Name, tracks)
		if err != nil {
			res.Error = err
			results <- res
			continue
		}

		res.File = path
		res.Success = true
		results <- res
	}
}

func (e *ExportEngine) writeManifest(result *BulkExportResult, f formatter.Format, path string) error {
	m := manifest{
		GeneratedAt: e.clock.Now().UTC().Format(time.RFC3339),
		Format:      string(f),
		Total:       result.TotalPlaylists,
		Successful:  result.SuccessfulExports,
		Failed:      result.FailedExports,
		Playlists:   make([]manifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := manifestEntry{ID: r.PlaylistID, Name: r.PlaylistName, TrackCount: r.TrackCount, Success: r.Success}
		if r.File != "" {
			entry.File = filepath.Base(r.File)
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// uniqueBaseNames derives a file base name per playlist. Names that sanitize to the same
// value, ignoring case, get the playlist id appended. The manifest's base name is reserved.
func uniqueBaseNames(playlists []models.PlaylistSummary) []string {
	seen := map[string]int{manifestBase: 1}
	for _, p := range playlists {
		seen[strings.ToLower(formatter.SanitizeFileName(p.Name))]++
	}

	bases := make([]string, len(playlists))
	for i, p := range playlists {
		base := formatter.SanitizeFileName(p.Name)
		if seen[strings.ToLower(base)] > 1 {
			base += "_" + formatter.SanitizeFileName(p.ID)
		}
		bases[i] = base
	}
	return bases
}
