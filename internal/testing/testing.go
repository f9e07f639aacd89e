// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spx/internal/models"
)

// MockService is a test double for [services.Service]
type MockService struct {
	Profile      *models.Profile
	PlaylistList []models.PlaylistSummary
	Tracks       map[string][]models.Track

	ProfileErr   error
	PlaylistsErr error
	TracksErr    map[string]error

	mu         sync.Mutex
	trackCalls map[string]int
	lastToken  string
}

func (m *MockService) UserProfile(ctx context.Context, token string) (*models.Profile, error) {
	m.record(token, "")
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	if m.Profile == nil {
		return &models.Profile{ID: "mock-user"}, nil
	}
	return m.Profile, nil
}

func (m *MockService) Playlists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	m.record(token, "")
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.PlaylistList, nil
}

func (m *MockService) PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error) {
	m.record(token, playlistID)
	if err := m.TracksErr[playlistID]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Tracks[playlistID], nil
}

func (m *MockService) Name() string { return "mock" }

// TrackCalls reports how many times tracks were requested for playlistID.
func (m *MockService) TrackCalls(playlistID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackCalls[playlistID]
}

// LastToken returns the access token of the most recent call.
func (m *MockService) LastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastToken
}

func (m *MockService) record(token, playlistID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastToken = token
	if playlistID == "" {
		return
	}
	if m.trackCalls == nil {
		m.trackCalls = make(map[string]int)
	}
	m.trackCalls[playlistID]++
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
