package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jonboulle/clockwork"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, clock clockwork.Clock) *repositories.SessionStore {
	t.Helper()
	store, err := repositories.OpenSessionStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testConfig() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:    "client-123",
		Scopes:      "playlist-read-private user-read-email",
		RedirectURI: "http://127.0.0.1:3000/callback",
		AuthURL:     "https://accounts.example.com/authorize",
		TokenURL:    "https://accounts.example.com/api/token",
	}
}

func TestInitiator(t *testing.T) {
	ctx := context.Background()

	t.Run("Builds Authorization URL", func(t *testing.T) {
		store := newTestStore(t, clockwork.NewFakeClockAt(testNow))
		initiator := NewInitiator(testConfig(), store, nil)

		raw, err := initiator.Start(ctx, "flow-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid URL: %v", err)
		}
		if u.Host != "accounts.example.com" || u.Path != "/authorize" {
			t.Errorf("unexpected endpoint %s", raw)
		}

		q := u.Query()
		want := map[string]string{
			"response_type":         "code",
			"client_id":             "client-123",
			"scope":                 "playlist-read-private user-read-email",
			"redirect_uri":          "http://127.0.0.1:3000/callback",
			"code_challenge_method": "S256",
		}
		for k, v := range want {
			if got := q.Get(k); got != v {
				t.Errorf("%s: expected %q, got %q", k, v, got)
			}
		}
		if len(q) != 7 {
			t.Errorf("expected exactly 7 parameters, got %d: %v", len(q), q)
		}

		flow, err := store.Flow(ctx, "flow-1")
		if err != nil {
			t.Fatalf("expected stored flow, got %v", err)
		}
		if q.Get("state") != flow.State {
			t.Error("state in URL does not match stored nonce")
		}
		if q.Get("code_challenge") != Challenge(flow.CodeVerifier) {
			t.Error("challenge does not match stored verifier")
		}
		if strings.Contains(raw, flow.CodeVerifier) {
			t.Error("verifier must not appear in the authorization URL")
		}
		if flow.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected redirect uri %s", flow.RedirectURI)
		}
	})

	t.Run("Fresh Values Per Attempt", func(t *testing.T) {
		store := newTestStore(t, nil)
		initiator := NewInitiator(testConfig(), store, nil)

		first, _ := initiator.Start(ctx, "flow-1")
		firstFlow, _ := store.Flow(ctx, "flow-1")
		second, _ := initiator.Start(ctx, "flow-1")
		secondFlow, _ := store.Flow(ctx, "flow-1")

		if first == second {
			t.Error("expected a new URL per attempt")
		}
		if firstFlow.State == secondFlow.State || firstFlow.CodeVerifier == secondFlow.CodeVerifier {
			t.Error("expected the second attempt to replace the stored flow")
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		for _, id := range []string{"", "   ", "your_spotify_client_id", "YOUR-SPOTIFY-CLIENT-ID"} {
			store := newTestStore(t, nil)
			cfg := testConfig()
			cfg.ClientID = id

			raw, err := NewInitiator(cfg, store, nil).Start(ctx, "flow-1")
			if !errors.Is(err, shared.ErrConfigMissing) {
				t.Errorf("client id %q: expected ErrConfigMissing, got %v", id, err)
			}
			if raw != "" {
				t.Errorf("client id %q: expected no URL, got %s", id, raw)
			}
			if _, err := store.Flow(ctx, "flow-1"); !errors.Is(err, shared.ErrFlowNotFound) {
				t.Errorf("client id %q: expected no stored flow, got %v", id, err)
			}
		}
	})

	t.Run("Random Source Failure", func(t *testing.T) {
		withFailingRandom(t)
		store := newTestStore(t, nil)

		_, err := NewInitiator(testConfig(), store, nil).Start(ctx, "flow-1")
		if !errors.Is(err, shared.ErrCryptoUnavailable) {
			t.Errorf("expected ErrCryptoUnavailable, got %v", err)
		}
	})

	t.Run("Default Endpoints", func(t *testing.T) {
		conf := OAuthConfig(shared.SpotifyConfig{ClientID: "abc"})
		if conf.Endpoint.AuthURL != DefaultAuthURL || conf.Endpoint.TokenURL != DefaultTokenURL {
			t.Errorf("unexpected endpoints %+v", conf.Endpoint)
		}
		if strings.Join(conf.Scopes, " ") != shared.DefaultScopes {
			t.Errorf("expected default scopes, got %v", conf.Scopes)
		}
		if conf.ClientSecret != "" {
			t.Error("public client must not carry a secret")
		}
	})
}
