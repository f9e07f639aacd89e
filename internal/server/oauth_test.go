package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

func TestLoopbackHandler(t *testing.T) {
	t.Run("Routes From Redirect URI", func(t *testing.T) {
		tests := map[string]string{
			"http://127.0.0.1:3000/callback":  "/callback",
			"http://localhost:8888/auth/done": "/auth/done",
			"http://127.0.0.1:3000":           "/callback",
			"http://127.0.0.1:3000/":          "/callback",
		}
		for uri, want := range tests {
			h, err := NewLoopbackHandler(uri, nil)
			if err != nil {
				t.Fatalf("%s: unexpected error %v", uri, err)
			}
			if got := h.Routes(); len(got) != 1 || got[0] != want {
				t.Errorf("%s: expected route %s, got %v", uri, want, got)
			}
		}
	})

	t.Run("Success", func(t *testing.T) {
		var got auth.CallbackParams
		h, _ := NewLoopbackHandler("http://127.0.0.1:3000/callback", func(_ context.Context, p auth.CallbackParams) *auth.Result {
			got = p
			return &auth.Result{
				State:     auth.Ready,
				Params:    p,
				Profile:   &models.Profile{ID: "user-1", DisplayName: "Test User"},
				Playlists: []models.PlaylistSummary{{ID: "p1", Name: "Chill"}},
			}
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=xyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in as Test User. Loaded 1 playlists.") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if got.Code != "abc" || got.State != "xyz" {
			t.Errorf("unexpected params %+v", got)
		}

		select {
		case res := <-h.Result():
			if !res.OK() {
				t.Errorf("expected ready result, got %s", res.State)
			}
		case <-time.After(time.Second):
			t.Fatal("expected a result")
		}
	})

	t.Run("Failure Echoes Code And State", func(t *testing.T) {
		h, _ := NewLoopbackHandler("http://127.0.0.1:3000/callback", func(_ context.Context, p auth.CallbackParams) *auth.Result {
			return &auth.Result{State: auth.Failed, Params: p, Err: shared.ErrStateMismatch}
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=forged", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{"state parameter mismatch", "code:  abc", "state: forged"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in body %q", want, body)
			}
		}

		res := <-h.Result()
		if !errors.Is(res.Err, shared.ErrStateMismatch) {
			t.Errorf("expected state mismatch result, got %v", res.Err)
		}
	})

	t.Run("Single Callback", func(t *testing.T) {
		var calls atomic.Int32
		h, _ := NewLoopbackHandler("http://127.0.0.1:3000/callback", func(_ context.Context, p auth.CallbackParams) *auth.Result {
			calls.Add(1)
			return &auth.Result{State: auth.Failed, Params: p, Err: shared.ErrNoCode}
		})

		for range 3 {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback", nil))
		}

		if calls.Load() != 1 {
			t.Errorf("expected one processed callback, got %d", calls.Load())
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=late", nil))
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for repeated callback, got %d", rec.Code)
		}

		if _, ok := <-h.Result(); !ok {
			t.Error("expected the first result")
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected channel to be closed after one result")
		}
	})

	t.Run("Served Over Loopback Listener", func(t *testing.T) {
		h, _ := NewLoopbackHandler("http://127.0.0.1:0/callback", func(_ context.Context, p auth.CallbackParams) *auth.Result {
			return &auth.Result{State: auth.Failed, Params: p, Err: shared.ErrNoCode}
		})
		r := NewRouter(shared.NewLogger(io.Discard))
		r.Handler(h)

		l, err := Listen("127.0.0.1:0", r)
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		t.Cleanup(func() { l.Shutdown(context.Background()) })

		resp, err := http.Get("http://" + l.Addr() + "/callback")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		if res := <-h.Result(); !errors.Is(res.Err, shared.ErrNoCode) {
			t.Errorf("expected no code error, got %v", res.Err)
		}
	})
}

func TestLoopbackAddr(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{uri: "http://127.0.0.1:3000/callback", want: "127.0.0.1:3000"},
		{uri: "http://localhost:8888/callback", want: "localhost:8888"},
		{uri: "http://[::1]:3000/callback", want: "[::1]:3000"},
		{uri: "https://127.0.0.1:3000/callback", wantErr: true},
		{uri: "http://127.0.0.1/callback", wantErr: true},
		{uri: "http://example.com:3000/callback", wantErr: true},
		{uri: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := LoopbackAddr(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
