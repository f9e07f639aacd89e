package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// FlowStore holds per-session authorization state.
//
// Implemented by [repositories.SessionStore].
type FlowStore interface {
	SaveFlow(ctx context.Context, flowID string, flow models.FlowState) error
	Flow(ctx context.Context, flowID string) (*models.FlowState, error)
	DeleteFlow(ctx context.Context, flowID string) error
	SaveToken(ctx context.Context, flowID string, token models.TokenSet) error
}

// OAuthConfig builds the public-client [oauth2.Config] for cfg.
//
// The client id travels in the request parameters and no secret is set.
func OAuthConfig(cfg shared.SpotifyConfig) *oauth2.Config {
	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &oauth2.Config{
		ClientID:    cfg.ClientIDOrEmpty(),
		RedirectURL: cfg.RedirectURI,
		Scopes:      cfg.ScopeList(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Initiator starts authorization attempts.
type Initiator struct {
	cfg    shared.SpotifyConfig
	store  FlowStore
	logger *log.Logger
}

// NewInitiator creates an Initiator that persists flow state in store.
func NewInitiator(cfg shared.SpotifyConfig, store FlowStore, logger *log.Logger) *Initiator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Initiator{cfg: cfg, store: store, logger: shared.WithLogger(logger, "component", "initiator")}
}

// Start generates a verifier and state for flowID, stores them and returns the authorization URL.
//
// The caller navigates to the URL. Without a usable client id it fails with
// [shared.ErrConfigMissing] and stores nothing.
func (i *Initiator) Start(ctx context.Context, flowID string) (string, error) {
	if i.cfg.ClientIDOrEmpty() == "" {
		return "", fmt.Errorf("%w: spotify client id is not configured", shared.ErrConfigMissing)
	}
	if i.cfg.RedirectURI == "" {
		return "", fmt.Errorf("%w: spotify redirect uri is not configured", shared.ErrConfigMissing)
	}

	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	flow := models.FlowState{CodeVerifier: verifier, State: state, RedirectURI: i.cfg.RedirectURI}
	if err := i.store.SaveFlow(ctx, flowID, flow); err != nil {
		return "", fmt.Errorf("failed to persist flow state: %w", err)
	}

	authURL := OAuthConfig(i.cfg).AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", Challenge(verifier)),
	)

	i.logger.Debug("authorization started", "flow", flowID, "redirect_uri", flow.RedirectURI)
	return authURL, nil
}
