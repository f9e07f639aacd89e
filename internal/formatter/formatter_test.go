package formatter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	th "github.com/desertthunder/spx/internal/testing"
)

var generatedAt = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func sampleTracks() []models.Track {
	return []models.Track{
		{
			Name:    "Song One",
			Artists: "Artist One, Artist Two",
			Album:   "Album One",
			AddedAt: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
			URI:     "spotify:track:1",
		},
		{
			Name:    "Song Two",
			Artists: "",
			Album:   "Unknown album",
			URI:     "spotify:track:2",
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ToTextList", func(t *testing.T) {
		got := ToTextList(sampleTracks())
		want := "1. Song One — Artist One, Artist Two\n2. Song Two — "
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("ToTextList Empty", func(t *testing.T) {
		if got := ToTextList(nil); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("ToTextList Is Deterministic", func(t *testing.T) {
		if ToTextList(sampleTracks()) != ToTextList(sampleTracks()) {
			t.Error("expected identical output for identical input")
		}
	})

	t.Run("ToDownloadPayload", func(t *testing.T) {
		payload := ToDownloadPayload(sampleTracks(), "Road Trip", generatedAt)

		if payload.Playlist != "Road Trip" {
			t.Errorf("expected playlist name, got %s", payload.Playlist)
		}
		if payload.GeneratedAt != "2024-05-01T12:30:00Z" {
			t.Errorf("expected RFC 3339 timestamp, got %s", payload.GeneratedAt)
		}
		if len(payload.Tracks) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(payload.Tracks))
		}
	})

	t.Run("ToDownloadPayload Defaults", func(t *testing.T) {
		payload := ToDownloadPayload(nil, "", generatedAt)
		if payload.Playlist != DefaultPlaylistName {
			t.Errorf("expected default name, got %s", payload.Playlist)
		}

		data, err := ExportToJSON(payload)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"tracks": []`) {
			t.Errorf("expected empty tracks array, got %s", data)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(ToDownloadPayload(sampleTracks(), "Road Trip", generatedAt))
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		for _, key := range []string{"playlist", "generatedAt", "tracks"} {
			if _, ok := doc[key]; !ok {
				t.Errorf("missing key %s", key)
			}
		}

		tracks := doc["tracks"].([]any)
		first := tracks[0].(map[string]any)
		for _, key := range []string{"name", "artists", "album", "addedAt", "uri"} {
			if _, ok := first[key]; !ok {
				t.Errorf("track missing key %s", key)
			}
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Name,Artists,Album,Added At,URI\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `Song One,"Artist One, Artist Two",Album One,2023-01-02T03:04:05Z,spotify:track:1`) {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, "Song Two,,Unknown album,,spotify:track:2") {
			t.Errorf("CSV missing second record, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		output := string(ExportToMarkdown("Road Trip", sampleTracks(), generatedAt))

		if !strings.HasPrefix(output, "# Road Trip\n") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Errorf("Markdown missing track count")
		}
		if !strings.Contains(output, "1. **Song One** — Artist One, Artist Two _(Album One)_") {
			t.Errorf("Markdown missing first track, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(sampleTracks()))
		if !strings.HasSuffix(output, "\n") || strings.Count(output, "\n") != 2 {
			t.Errorf("expected one line per track, got %q", output)
		}
	})
}

func TestFileNames(t *testing.T) {
	t.Run("SanitizeFileName", func(t *testing.T) {
		got := SanitizeFileName("My Playlist! (2024)/test")
		if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(got) {
			t.Errorf("unexpected characters in %q", got)
		}
		if got != "My_Playlist___2024__test" {
			t.Errorf("expected My_Playlist___2024__test, got %s", got)
		}
	})

	t.Run("Keeps Allowed Characters", func(t *testing.T) {
		if got := SanitizeFileName("mix-tape_01"); got != "mix-tape_01" {
			t.Errorf("expected name unchanged, got %s", got)
		}
	})

	t.Run("Non-ASCII", func(t *testing.T) {
		if got := SanitizeFileName("Café"); got != "Caf_" {
			t.Errorf("expected Caf_, got %s", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		for _, name := range []string{"", "   "} {
			if got := SanitizeFileName(name); got != DefaultPlaylistName {
				t.Errorf("SanitizeFileName(%q) = %s, want %s", name, got, DefaultPlaylistName)
			}
		}
	})

	t.Run("DownloadFileName", func(t *testing.T) {
		if got := DownloadFileName("Road Trip"); got != "Road_Trip.json" {
			t.Errorf("expected Road_Trip.json, got %s", got)
		}
		if got := DownloadFileName(""); got != "playlist.json" {
			t.Errorf("expected playlist.json, got %s", got)
		}
	})

	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in   string
			want Format
		}{
			{"", FormatJSON},
			{"JSON", FormatJSON},
			{"text", FormatText},
			{"csv", FormatCSV},
			{"markdown", FormatMarkdown},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %s, %v", tt.in, got, err)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "exports")

			path, err := WriteExport(dir, f, "Road Trip", sampleTracks(), generatedAt)
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if filepath.Base(path) != "Road_Trip."+string(f) {
				t.Errorf("unexpected file name %s", path)
			}

			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
				t.Errorf("expected track in export, got %s", content)
			}
		})
	}

	t.Run("Unwritable Directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := WriteExport(filepath.Join(file, "sub"), FormatJSON, "x", nil, generatedAt); err == nil {
			t.Error("expected error when directory cannot be created")
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := WriteExport(t.TempDir(), Format("xml"), "x", nil, generatedAt); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
