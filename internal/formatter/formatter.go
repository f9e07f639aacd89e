// package formatter provides functions to export playlist tracks to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// DefaultPlaylistName replaces a missing playlist name in payloads and file names.
const DefaultPlaylistName = "playlist"

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatText, FormatCSV, FormatMarkdown}

// ParseFormat resolves a format name. "text" and "markdown" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want json, txt, csv or md)", shared.ErrInvalidArgument, s)
}

// DownloadPayload is the JSON export document.
type DownloadPayload struct {
	Playlist    string         `json:"playlist"`
	GeneratedAt string         `json:"generatedAt"`
	Tracks      []models.Track `json:"tracks"`
}

// ToTextList renders one "{index}. {name} — {artists}" line per track, 1-indexed, in load order.
func ToTextList(tracks []models.Track) string {
	lines := make([]string, len(tracks))
	for i, track := range tracks {
		lines[i] = fmt.Sprintf("%d. %s — %s", i+1, track.Name, track.Artists)
	}
	return strings.Join(lines, "\n")
}

// ToDownloadPayload builds the export document with now as the RFC 3339 generation time.
func ToDownloadPayload(tracks []models.Track, playlistName string, now time.Time) DownloadPayload {
	if tracks == nil {
		tracks = []models.Track{}
	}
	return DownloadPayload{
		Playlist:    playlistNameOrDefault(playlistName),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Tracks:      tracks,
	}
}

// SanitizeFileName replaces every character outside [A-Za-z0-9-_] with "_".
//
// An empty name becomes [DefaultPlaylistName].
func SanitizeFileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultPlaylistName
	}

	return strings.Map(func(r rune) rune {
		switch {
		case 'A' <= r && r <= 'Z', 'a' <= r && r <= 'z', '0' <= r && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

// DownloadFileName is the sanitized JSON file name for a playlist.
func DownloadFileName(playlistName string) string {
	return FileName(playlistName, FormatJSON)
}

// FileName is the sanitized file name for a playlist export in format f.
func FileName(playlistName string, f Format) string {
	return SanitizeFileName(playlistName) + "." + string(f)
}

// ExportToJSON renders the download payload as indented JSON.
func ExportToJSON(payload DownloadPayload) ([]byte, error) {
	return shared.MarshalJSON(payload, true)
}

// ExportToCSV converts tracks to CSV format with columns: Name, Artists, Album, Added At, URI
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Name", "Artists", "Album", "Added At", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.Name,
			track.Artists,
			track.Album,
			formatAddedAt(track.AddedAt),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts tracks to a Markdown document headed by the playlist name.
func ExportToMarkdown(playlistName string, tracks []models.Track, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlistNameOrDefault(playlistName))
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(tracks))
	fmt.Fprintf(&buf, "**Generated**: %s\n\n", now.UTC().Format(time.RFC3339))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" _(%s)_", track.Album)
		}
		fmt.Fprintf(&buf, "%d. **%s** — %s%s\n", i+1, track.Name, track.Artists, albumPart)
	}

	return buf.Bytes()
}

// ExportToText converts tracks to the plain text list with a trailing newline.
func ExportToText(tracks []models.Track) []byte {
	if len(tracks) == 0 {
		return nil
	}
	return []byte(ToTextList(tracks) + "\n")
}

// Render produces the export document in format f.
func Render(f Format, playlistName string, tracks []models.Track, now time.Time) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportToJSON(ToDownloadPayload(tracks, playlistName, now))
	case FormatText:
		return ExportToText(tracks), nil
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown:
		return ExportToMarkdown(playlistName, tracks, now), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
}

// WriteExport renders tracks in format f and writes them to dir under [FileName].
//
// The directory is created when missing. Returns the written path.
func WriteExport(dir string, f Format, playlistName string, tracks []models.Track, now time.Time) (string, error) {
	data, err := Render(f, playlistName, tracks, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(playlistName, f))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

func playlistNameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultPlaylistName
	}
	return name
}

func formatAddedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
