package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// MockProvider is an httptest server speaking enough of the Spotify token endpoint and Web API
// for end-to-end flow tests.
//
// Listings are served in pages: page n of a listing is requested with ?page=n and links to
// page n+1 until the last configured page.
type MockProvider struct {
	*httptest.Server

	AccessToken string
	ExpiresIn   int
	TokenStatus int
	TokenBody   string

	Profile       map[string]any
	ProfileStatus int

	// PlaylistPages holds the item pages of GET /v1/me/playlists.
	PlaylistPages [][]any
	// TrackPages holds the item pages of GET /v1/playlists/{id}/tracks by playlist id.
	TrackPages map[string][][]any

	mu         sync.Mutex
	failures   map[string]int
	tokenForms []url.Values
	requests   []string
	authHeader string
}

// NewMockProvider starts a provider that issues access token "T" for an hour.
func NewMockProvider(t *testing.T) *MockProvider {
	t.Helper()

	m := &MockProvider{
		AccessToken: "T",
		ExpiresIn:   3600,
		Profile:     map[string]any{"id": "user-1", "display_name": "Test User", "email": "user@example.com"},
		TrackPages:  make(map[string][][]any),
		failures:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", m.handleToken)
	mux.HandleFunc("GET /v1/me", m.handleProfile)
	mux.HandleFunc("GET /v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		m.handlePages(w, r, m.PlaylistPages)
	})
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		pages, ok := m.TrackPages[r.PathValue("id")]
		m.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":{"status":404,"message":"Not found."}}`, http.StatusNotFound)
			return
		}
		m.handlePages(w, r, pages)
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

// TokenURL is the token endpoint.
func (m *MockProvider) TokenURL() string { return m.URL + "/api/token" }

// AuthURL is the authorize endpoint. The mock never serves it.
func (m *MockProvider) AuthURL() string { return m.URL + "/authorize" }

// APIURL is the Web API base URL.
func (m *MockProvider) APIURL() string { return m.URL + "/v1" }

// FailPage makes page n (1-based) of the listing at path answer with status.
func (m *MockProvider) FailPage(path string, n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[pageKey(path, n)] = status
}

// TokenCalls reports how many times the token endpoint was hit.
func (m *MockProvider) TokenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokenForms)
}

// TokenForm returns the form of the i-th token request.
func (m *MockProvider) TokenForm(i int) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.tokenForms) {
		return nil
	}
	return m.tokenForms[i]
}

// Requests lists the request URIs of every API call in arrival order.
func (m *MockProvider) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// LastAuthorization returns the Authorization header of the latest API call.
func (m *MockProvider) LastAuthorization() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authHeader
}

func (m *MockProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.tokenForms = append(m.tokenForms, r.PostForm)
	m.mu.Unlock()

	if m.TokenStatus != 0 && m.TokenStatus != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.TokenStatus)
		w.Write([]byte(m.TokenBody))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": m.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   m.ExpiresIn,
		"scope":        r.PostForm.Get("scope"),
	})
}

func (m *MockProvider) handleProfile(w http.ResponseWriter, r *http.Request) {
	m.track(r)
	if m.ProfileStatus != 0 && m.ProfileStatus != http.StatusOK {
		writeJSON(w, m.ProfileStatus, map[string]any{"error": map[string]any{"status": m.ProfileStatus, "message": "profile unavailable"}})
		return
	}
	writeJSON(w, http.StatusOK, m.Profile)
}

func (m *MockProvider) handlePages(w http.ResponseWriter, r *http.Request, pages [][]any) {
	m.track(r)

	n := 1
	if v := r.URL.Query().Get("page"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
	}

	m.mu.Lock()
	status, failed := m.failures[pageKey(r.URL.Path, n)]
	m.mu.Unlock()
	if failed {
		writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "page failed"}})
		return
	}

	items := []any{}
	if n <= len(pages) && pages[n-1] != nil {
		items = pages[n-1]
	}

	var next any
	if n < len(pages) {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n+1))
		next = m.URL + r.URL.Path + "?" + q.Encode()
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next": next, "total": countItems(pages)})
}

func (m *MockProvider) track(r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r.URL.RequestURI())
	m.authHeader = r.Header.Get("Authorization")
}

// PlaylistItem builds a simplified playlist object.
func PlaylistItem(id, name string, total int) map[string]any {
	return map[string]any{"id": id, "name": name, "tracks": map[string]any{"total": total}}
}

// TrackItem builds a playlist track object. Artist names are split on ", "; an empty
// string gives an empty artist list.
func TrackItem(name, artists, album string) map[string]any {
	list := []any{}
	if artists != "" {
		for a := range strings.SplitSeq(artists, ", ") {
			list = append(list, map[string]any{"name": a})
		}
	}
	return map[string]any{
		"added_at": "2024-05-01T12:00:00Z",
		"track": map[string]any{
			"name":    name,
			"artists": list,
			"album":   map[string]any{"name": album},
			"uri":     "spotify:track:" + strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		},
	}
}

func pageKey(path string, n int) string {
	return fmt.Sprintf("%s#%d", path, n)
}

func countItems(pages [][]any) int {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	return total
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
