package shared

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultScopes is used when no scopes are configured.
const DefaultScopes = "playlist-read-private playlist-read-collaborative user-read-email"

var placeholderClientID = regexp.MustCompile(`(?i)^your[_-]?spotify[_-]?client[_-]?id$`)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Session     SessionConfig     `toml:"session"`
	HTTP        HTTPConfig        `toml:"http"`
	Export      ExportConfig      `toml:"export"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the public client settings for the PKCE flow.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	Scopes      string `toml:"scopes"`
	RedirectURI string `toml:"redirect_uri"`
	AuthURL     string `toml:"auth_url"`
	TokenURL    string `toml:"token_url"`
	APIURL      string `toml:"api_url"`
}

// ServerConfig contains HTTP server settings for the callback listener and web mode.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains session store settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SessionConfig contains web session cookie settings.
type SessionConfig struct {
	Secret     string `toml:"secret"`
	CookieName string `toml:"cookie_name"`
}

// HTTPConfig contains outbound request settings.
type HTTPConfig struct {
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ExportConfig contains export defaults.
type ExportConfig struct {
	Dir     string `toml:"dir"`
	Format  string `toml:"format"`
	Workers int    `toml:"workers"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Missing fields keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides the client id and scopes from SPOTIFY_CLIENT_ID and SPOTIFY_SCOPES.
//
// Blank values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("SPOTIFY_CLIENT_ID")); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := strings.TrimSpace(getenv("SPOTIFY_SCOPES")); v != "" {
		c.Credentials.Spotify.Scopes = v
	}
}

// ClientIDOrEmpty returns the trimmed client id, or "" when it is unset or still the placeholder.
func (s SpotifyConfig) ClientIDOrEmpty() string {
	id := strings.TrimSpace(s.ClientID)
	if id == "" || placeholderClientID.MatchString(id) {
		return ""
	}
	return id
}

// ScopeString returns the configured scopes, or [DefaultScopes] when blank.
func (s SpotifyConfig) ScopeString() string {
	if strings.TrimSpace(s.Scopes) == "" {
		return DefaultScopes
	}
	return s.Scopes
}

// ScopeList splits the scope string on whitespace.
func (s SpotifyConfig) ScopeList() []string {
	return strings.Fields(s.ScopeString())
}

// Validate reports [ErrConfigMissing] when no usable client id is configured.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientIDOrEmpty() == "" {
		return fmt.Errorf("%w: set credentials.spotify.client_id in config.toml or SPOTIFY_CLIENT_ID", ErrConfigMissing)
	}
	return nil
}

// Addr returns the host:port the local server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the per-request timeout, defaulting to 15 seconds.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}
