// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// DefaultSpotifyAPIURL is the Web API base URL.
	DefaultSpotifyAPIURL = "https://api.spotify.com/v1"

	playlistPageSize = 50
	trackPageSize    = 100
)

// Placeholders for track fields the provider left out.
const (
	UnknownTrack  = "Unknown track"
	UnknownArtist = "Unknown artist"
	UnknownAlbum  = "Unknown album"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SpotifyArtist represents a (simplified) Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a (simplified) Spotify album.
type SpotifyAlbum struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
//
// Fields are pointers so absent values can be told apart from empty ones.
type SpotifyTrack struct {
	ID      string           `json:"id"`
	Name    *string          `json:"name"`
	Artists *[]SpotifyArtist `json:"artists"`
	Album   *SpotifyAlbum    `json:"album"`
	URI     string           `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for removed or unavailable tracks.
type SpotifyPlaylistTrack struct {
	AddedAt *string       `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Tracks simplePlaylistTracks `json:"tracks"`
}

// page is one response of a cursor-paginated endpoint.
type page struct {
	Items []json.RawMessage `json:"items"`
	Next  *string           `json:"next"`
}

// SpotifyService implements [Service] against the Spotify Web API.
type SpotifyService struct {
	baseURL string
	api     *APIService
	logger  *log.Logger
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *log.Logger
}

// NewSpotifyService creates a new Spotify service.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSpotifyAPIURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		api:     NewAPIService(opts.HTTPClient, opts.Timeout, opts.RequestsPerSecond),
		logger:  shared.WithLogger(opts.Logger, "component", "spotify"),
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// UserProfile retrieves the current authenticated user's profile.
//
// Non-success responses fail with [shared.ErrProfileFetch].
func (s *SpotifyService) UserProfile(ctx context.Context, token string) (*models.Profile, error) {
	endpoint := s.baseURL + "/me"

	resp, err := s.api.Get(ctx, endpoint, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrProfileFetch, err)
	}
	if !resp.OK() {
		return nil, shared.NewHTTPError(shared.ErrProfileFetch, resp.StatusCode, endpoint, resp.Body)
	}

	var user SpotifyUser
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrProfileFetch, err)
	}

	return &models.Profile{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}

// Playlists retrieves all playlists of the current user.
//
// Sorting by name happens after every page has been collected.
func (s *SpotifyService) Playlists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	endpoint := fmt.Sprintf("%s/me/playlists?limit=%d", s.baseURL, playlistPageSize)

	items, err := fetchAll[SpotifySimplePlaylist](ctx, s, endpoint, token)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.PlaylistSummary, 0, len(items))
	for _, sp := range items {
		playlists = append(playlists, models.PlaylistSummary{
			ID:         sp.ID,
			Name:       sp.Name,
			TrackCount: sp.Tracks.Total,
		})
	}

	SortPlaylists(playlists)
	return playlists, nil
}

// PlaylistTracks retrieves every track of the playlist in playlist order.
//
// This is independent of the authorization flow and can be retried freely.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", s.baseURL, url.PathEscape(playlistID), trackPageSize)

	items, err := fetchAll[SpotifyPlaylistTrack](ctx, s, endpoint, token)
	if err != nil {
		return nil, err
	}

	return ExtractTracks(items), nil
}

// FetchAllPages follows the provider's next links from initialURL and returns every item in encounter order.
//
// Pages are requested one at a time. A non-success page aborts the whole fetch with
// [shared.ErrPageFetch] and no partial result.
func (s *SpotifyService) FetchAllPages(ctx context.Context, initialURL, token string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	visited := make(map[string]bool)

	next := initialURL
	for n := 1; next != ""; n++ {
		if visited[next] {
			return nil, fmt.Errorf("%w: pagination cycle at %s", shared.ErrPageFetch, next)
		}
		visited[next] = true

		s.logger.Debug("fetching page", "page", n, "url", next)

		resp, err := s.api.Get(ctx, next, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrPageFetch, err)
		}
		if !resp.OK() {
			return nil, shared.NewHTTPError(shared.ErrPageFetch, resp.StatusCode, next, resp.Body)
		}

		var p page
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, fmt.Errorf("%w: failed to decode page %s: %v", shared.ErrPageFetch, next, err)
		}

		all = append(all, p.Items...)

		if p.Next == nil || *p.Next == "" {
			break
		}
		if next, err = s.resolve(next, *p.Next); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// resolve makes a next link absolute relative to the page that returned it.
func (s *SpotifyService) resolve(current, next string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("%w: invalid page url %q: %v", shared.ErrPageFetch, current, err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("%w: invalid next url %q: %v", shared.ErrPageFetch, next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// fetchAll is [SpotifyService.FetchAllPages] with items decoded into T.
func fetchAll[T any](ctx context.Context, s *SpotifyService, initialURL, token string) ([]T, error) {
	raw, err := s.FetchAllPages(ctx, initialURL, token)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("%w: failed to decode item %d: %v", shared.ErrPageFetch, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ExtractTracks converts playlist items into [models.Track] records.
//
// Items without a nested track are skipped. Missing name, artists or album fall back to
// placeholders; an empty artist list yields "".
func ExtractTracks(items []SpotifyPlaylistTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))

	for _, item := range items {
		if item.Track == nil {
			continue
		}
		t := item.Track

		track := models.Track{
			Name:    UnknownTrack,
			Artists: UnknownArtist,
			Album:   UnknownAlbum,
			URI:     t.URI,
		}

		if t.Name != nil && *t.Name != "" {
			track.Name = *t.Name
		}

		if t.Artists != nil {
			names := make([]string, 0, len(*t.Artists))
			for _, a := range *t.Artists {
				if a.Name == "" {
					a.Name = UnknownArtist
				}
				names = append(names, a.Name)
			}
			track.Artists = strings.Join(names, ", ")
		}

		if t.Album != nil && t.Album.Name != nil && *t.Album.Name != "" {
			track.Album = *t.Album.Name
		}

		if item.AddedAt != nil {
			if added, err := time.Parse(time.RFC3339, *item.AddedAt); err == nil {
				track.AddedAt = added.UTC()
			}
		}

		tracks = append(tracks, track)
	}

	return tracks
}

// SortPlaylists orders playlists by name, case-insensitively, using locale-aware collation.
//
// The sort is stable so equal names keep provider order.
func SortPlaylists(playlists []models.PlaylistSummary) {
	c := collate.New(language.Und, collate.IgnoreCase, collate.Loose)

	var buf collate.Buffer
	keys := make(map[string][]byte, len(playlists))
	for _, p := range playlists {
		if _, ok := keys[p.Name]; !ok {
			keys[p.Name] = append([]byte(nil), c.KeyFromString(&buf, p.Name)...)
			buf.Reset()
		}
	}

	slices.SortStableFunc(playlists, func(a, b models.PlaylistSummary) int {
		return bytes.Compare(keys[a.Name], keys[b.Name])
	})
}
