package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

func newTestSpotify(baseURL string) *SpotifyService {
	return NewSpotifyService(SpotifyOpts{BaseURL: baseURL, Timeout: time.Second})
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			srv := NewSpotifyService(SpotifyOpts{})
			if srv.baseURL != DefaultSpotifyAPIURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			srv := newTestSpotify("http://example.com/v1/")
			if srv.baseURL != "http://example.com/v1" {
				t.Errorf("expected trimmed base URL, got %s", srv.baseURL)
			}
		})
	})

	t.Run("FetchAllPages", func(t *testing.T) {
		t.Run("Follows Next Across Three Pages", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.PlaylistPages = [][]any{
				{tu.PlaylistItem("a", "A", 1), tu.PlaylistItem("b", "B", 2)},
				{tu.PlaylistItem("c", "C", 3), tu.PlaylistItem("d", "D", 4)},
				{tu.PlaylistItem("e", "E", 5)},
			}

			srv := newTestSpotify(p.APIURL())
			items, err := srv.FetchAllPages(context.Background(), p.APIURL()+"/me/playlists", "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 5 {
				t.Fatalf("expected 5 items, got %d", len(items))
			}
			if reqs := p.Requests(); len(reqs) != 3 {
				t.Errorf("expected 3 requests, got %d: %v", len(reqs), reqs)
			}

			want := []string{"a", "b", "c", "d", "e"}
			for i, raw := range items {
				var pl SpotifySimplePlaylist
				if err := json.Unmarshal(raw, &pl); err != nil {
					t.Fatalf("failed to decode item %d: %v", i, err)
				}
				if pl.ID != want[i] {
					t.Errorf("item %d: expected %s, got %s", i, want[i], pl.ID)
				}
			}
		})

		t.Run("Single Page With Null Next", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.PlaylistPages = [][]any{{tu.PlaylistItem("a", "A", 1)}}

			srv := newTestSpotify(p.APIURL())
			items, err := srv.FetchAllPages(context.Background(), p.APIURL()+"/me/playlists", "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 1 {
				t.Errorf("expected 1 item, got %d", len(items))
			}
			if len(p.Requests()) != 1 {
				t.Errorf("expected exactly one request, got %d", len(p.Requests()))
			}
		})

		t.Run("Failing Page Aborts Without Partial Result", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.PlaylistPages = [][]any{
				{tu.PlaylistItem("a", "A", 1)},
				{tu.PlaylistItem("b", "B", 1)},
				{tu.PlaylistItem("c", "C", 1)},
			}
			p.FailPage("/v1/me/playlists", 2, http.StatusInternalServerError)

			srv := newTestSpotify(p.APIURL())
			items, err := srv.FetchAllPages(context.Background(), p.APIURL()+"/me/playlists", "T")
			if err == nil {
				t.Fatal("expected error for failing page")
			}
			if items != nil {
				t.Errorf("expected no partial results, got %d items", len(items))
			}
			if !errors.Is(err, shared.ErrPageFetch) {
				t.Errorf("expected ErrPageFetch, got %v", err)
			}

			httpErr, ok := shared.AsHTTPError(err)
			if !ok {
				t.Fatalf("expected HTTPError, got %T", err)
			}
			if httpErr.Status != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", httpErr.Status)
			}
			if !strings.Contains(httpErr.URL, "page=2") {
				t.Errorf("expected failing page URL, got %s", httpErr.URL)
			}
			if !strings.Contains(httpErr.Body, "page failed") {
				t.Errorf("expected response body, got %s", httpErr.Body)
			}
			if len(p.Requests()) != 2 {
				t.Errorf("expected fetch to stop after page 2, got %d requests", len(p.Requests()))
			}
		})

		t.Run("Resolves Relative Next", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if r.URL.Query().Get("offset") == "1" {
					w.Write([]byte(`{"items":[2],"next":null}`))
					return
				}
				w.Write([]byte(`{"items":[1],"next":"/v1/list?offset=1"}`))
			}))
			defer server.Close()

			srv := newTestSpotify(server.URL + "/v1")
			items, err := srv.FetchAllPages(context.Background(), server.URL+"/v1/list", "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 2 || string(items[1]) != "2" {
				t.Errorf("unexpected items %s", items)
			}
		})

		t.Run("Cycle Is Rejected", func(t *testing.T) {
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items":[1],"next":"` + server.URL + `/list"}`))
			}))
			defer server.Close()

			srv := newTestSpotify(server.URL)
			_, err := srv.FetchAllPages(context.Background(), server.URL+"/list", "T")
			if !errors.Is(err, shared.ErrPageFetch) {
				t.Errorf("expected ErrPageFetch for cycle, got %v", err)
			}
		})

		t.Run("Timeout Is Distinct", func(t *testing.T) {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer server.Close()
			defer close(release)

			srv := NewSpotifyService(SpotifyOpts{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
			_, err := srv.FetchAllPages(context.Background(), server.URL+"/list", "T")
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
			if _, ok := shared.AsHTTPError(err); ok {
				t.Error("timeouts carry no HTTP status")
			}
		})
	})

	t.Run("UserProfile", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			srv := newTestSpotify(p.APIURL())

			profile, err := srv.UserProfile(context.Background(), "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != "user-1" || profile.DisplayName != "Test User" {
				t.Errorf("unexpected profile %+v", profile)
			}
			if p.LastAuthorization() != "Bearer T" {
				t.Errorf("expected bearer token, got %q", p.LastAuthorization())
			}
		})

		t.Run("Non-Success Status", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.ProfileStatus = http.StatusForbidden
			srv := newTestSpotify(p.APIURL())

			_, err := srv.UserProfile(context.Background(), "T")
			if !errors.Is(err, shared.ErrProfileFetch) {
				t.Fatalf("expected ErrProfileFetch, got %v", err)
			}
			httpErr, _ := shared.AsHTTPError(err)
			if httpErr == nil || httpErr.Status != http.StatusForbidden {
				t.Errorf("expected status 403, got %+v", httpErr)
			}
		})
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("Sorted After All Pages", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.PlaylistPages = [][]any{
				{tu.PlaylistItem("1", "zebra", 3), tu.PlaylistItem("2", "Beta", 1)},
				{tu.PlaylistItem("3", "alpha", 2)},
			}
			srv := newTestSpotify(p.APIURL())

			playlists, err := srv.Playlists(context.Background(), "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			want := []string{"alpha", "Beta", "zebra"}
			if len(playlists) != len(want) {
				t.Fatalf("expected %d playlists, got %d", len(want), len(playlists))
			}
			for i, name := range want {
				if playlists[i].Name != name {
					t.Errorf("position %d: expected %s, got %s", i, name, playlists[i].Name)
				}
			}
			if playlists[0].TrackCount != 2 {
				t.Errorf("expected track count 2, got %d", playlists[0].TrackCount)
			}
			if reqs := p.Requests(); !strings.Contains(reqs[0], "limit=50") {
				t.Errorf("expected page size 50, got %s", reqs[0])
			}
		})

		t.Run("Empty", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			srv := newTestSpotify(p.APIURL())

			playlists, err := srv.Playlists(context.Background(), "T")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 0 {
				t.Errorf("expected no playlists, got %d", len(playlists))
			}
		})
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("Extracts Across Pages", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			p.TrackPages["pl1"] = [][]any{
				{tu.TrackItem("Song A", "X, Y", "Album A"), map[string]any{"track": nil}},
				{tu.TrackItem("Song B", "", "Album B")},
			}
			srv := newTestSpotify(p.APIURL())

			tracks, err := srv.PlaylistTracks(context.Background(), "T", "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
			if tracks[0].Artists != "X, Y" {
				t.Errorf("expected joined artists, got %q", tracks[0].Artists)
			}
			if tracks[1].Artists != "" {
				t.Errorf("expected empty artists for empty list, got %q", tracks[1].Artists)
			}
			if reqs := p.Requests(); !strings.Contains(reqs[0], "limit=100") {
				t.Errorf("expected page size 100, got %s", reqs[0])
			}
		})

		t.Run("Unknown Playlist", func(t *testing.T) {
			p := tu.NewMockProvider(t)
			srv := newTestSpotify(p.APIURL())

			_, err := srv.PlaylistTracks(context.Background(), "T", "missing")
			httpErr, ok := shared.AsHTTPError(err)
			if !ok || httpErr.Status != http.StatusNotFound {
				t.Errorf("expected 404 page error, got %v", err)
			}
		})

		t.Run("Empty ID", func(t *testing.T) {
			srv := newTestSpotify("http://example.com")
			_, err := srv.PlaylistTracks(context.Background(), "T", " ")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}

func TestExtractTracks(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("Defaults", func(t *testing.T) {
		items := []SpotifyPlaylistTrack{
			{Track: &SpotifyTrack{}},
		}
		tracks := ExtractTracks(items)
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		got := tracks[0]
		if got.Name != UnknownTrack || got.Artists != UnknownArtist || got.Album != UnknownAlbum {
			t.Errorf("expected placeholders, got %+v", got)
		}
	})

	t.Run("Skips Null Tracks", func(t *testing.T) {
		items := []SpotifyPlaylistTrack{
			{Track: nil},
			{Track: &SpotifyTrack{Name: str("Kept")}},
			{Track: nil},
		}
		tracks := ExtractTracks(items)
		if len(tracks) != 1 || tracks[0].Name != "Kept" {
			t.Errorf("expected only the non-null track, got %+v", tracks)
		}
	})

	t.Run("Empty Artist List", func(t *testing.T) {
		items := []SpotifyPlaylistTrack{
			{Track: &SpotifyTrack{Name: str("Song"), Artists: &[]SpotifyArtist{}}},
		}
		if got := ExtractTracks(items)[0].Artists; got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("Nameless Artists Keep Their Position", func(t *testing.T) {
		raw := `[
			{"track":{"name":"X","artists":[{"name":""}]}},
			{"track":{"name":"Z","artists":[{},{"name":"B"}]}}
		]`
		var items []SpotifyPlaylistTrack
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		tracks := ExtractTracks(items)
		if tracks[0].Artists != UnknownArtist {
			t.Errorf("expected %q, got %q", UnknownArtist, tracks[0].Artists)
		}
		if want := UnknownArtist + ", B"; tracks[1].Artists != want {
			t.Errorf("expected %q, got %q", want, tracks[1].Artists)
		}
	})

	t.Run("Decoded From JSON", func(t *testing.T) {
		raw := `[
			{"added_at":"2024-05-01T12:00:00Z","track":{"name":"One","artists":[{"name":"A"},{"name":"B"}],"album":{"name":"LP"},"uri":"spotify:track:1"}},
			{"added_at":null,"track":null},
			{"track":{"name":null,"artists":null,"album":null}}
		]`
		var items []SpotifyPlaylistTrack
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		tracks := ExtractTracks(items)
		want := []models.Track{
			{Name: "One", Artists: "A, B", Album: "LP", URI: "spotify:track:1", AddedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
			{Name: UnknownTrack, Artists: UnknownArtist, Album: UnknownAlbum},
		}
		if len(tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
		}
		for i := range want {
			if tracks[i] != want[i] {
				t.Errorf("track %d: expected %+v, got %+v", i, want[i], tracks[i])
			}
		}
	})
}

func TestSortPlaylists(t *testing.T) {
	t.Run("Case Insensitive", func(t *testing.T) {
		playlists := []models.PlaylistSummary{{Name: "b"}, {Name: "C"}, {Name: "a"}, {Name: "B"}}
		SortPlaylists(playlists)

		got := make([]string, len(playlists))
		for i, p := range playlists {
			got[i] = p.Name
		}
		if strings.Join(got, ",") != "a,b,B,C" {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("Accents Sort With Base Letters", func(t *testing.T) {
		playlists := []models.PlaylistSummary{{Name: "Zoo"}, {Name: "Éte"}, {Name: "Apple"}}
		SortPlaylists(playlists)

		if playlists[1].Name != "Éte" {
			t.Errorf("expected accented name between A and Z, got %v", playlists)
		}
	})
}
