package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != ":memory:" {
			t.Errorf("expected database path :memory:, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://localhost:8080/callback"

[http]
timeout_seconds = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("expected token url to keep its default, got %s", config.Credentials.Spotify.TokenURL)
		}

		if config.HTTP.Timeout() != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", config.HTTP.Timeout())
		}
	})

	t.Run("LoadConfig With Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name     string
			clientID string
			wantErr  bool
		}{
			{name: "empty", clientID: "", wantErr: true},
			{name: "whitespace", clientID: "   ", wantErr: true},
			{name: "placeholder", clientID: "your_spotify_client_id", wantErr: true},
			{name: "placeholder variant", clientID: "YOUR-SPOTIFY-CLIENT-ID", wantErr: true},
			{name: "real id", clientID: "4e3378722621422db7692c80cc2a0e25", wantErr: false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				config.Credentials.Spotify.ClientID = tt.clientID

				err := config.Validate()
				if tt.wantErr && !errors.Is(err, ErrConfigMissing) {
					t.Errorf("expected ErrConfigMissing, got %v", err)
				}
				if !tt.wantErr && err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		config := DefaultConfig()
		env := map[string]string{
			"SPOTIFY_CLIENT_ID": " abc123 ",
			"SPOTIFY_SCOPES":    "",
		}
		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Credentials.Spotify.ClientID != "abc123" {
			t.Errorf("expected client id from env, got %q", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ScopeString() != DefaultScopes {
			t.Errorf("expected blank env scopes to be ignored, got %q", config.Credentials.Spotify.Scopes)
		}
	})

	t.Run("ScopeList", func(t *testing.T) {
		spotify := SpotifyConfig{Scopes: "  playlist-read-private   user-read-email "}
		scopes := spotify.ScopeList()

		if len(scopes) != 2 || scopes[0] != "playlist-read-private" || scopes[1] != "user-read-email" {
			t.Errorf("unexpected scopes %v", scopes)
		}

		if got := (SpotifyConfig{}).ScopeString(); got != DefaultScopes {
			t.Errorf("expected default scopes, got %q", got)
		}
	})
}
