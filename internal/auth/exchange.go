package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for an access token.
type Exchanger interface {
	Exchange(ctx context.Context, code, verifier, redirectURI string) (*models.TokenSet, error)
}

// OAuthExchanger posts to the token endpoint with [oauth2.Config.Exchange].
type OAuthExchanger struct {
	config  *oauth2.Config
	client  *http.Client
	clock   clockwork.Clock
	timeout time.Duration
}

// NewOAuthExchanger creates an exchanger for cfg.
//
// A nil client uses the oauth2 default; a nil clock the real clock.
func NewOAuthExchanger(cfg shared.SpotifyConfig, client *http.Client, clock clockwork.Clock, timeout time.Duration) *OAuthExchanger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OAuthExchanger{config: OAuthConfig(cfg), client: client, clock: clock, timeout: timeout}
}

// Exchange sends client_id, grant_type, code, redirect_uri and code_verifier as form fields.
//
// A non-success response becomes a [shared.HTTPError] of kind [shared.ErrTokenExchange].
func (e *OAuthExchanger) Exchange(ctx context.Context, code, verifier, redirectURI string) (*models.TokenSet, error) {
	conf := *e.config
	conf.RedirectURL = redirectURI

	if e.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tok, err := conf.Exchange(callCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		switch {
		case errors.As(err, &re) && re.Response != nil:
			return nil, shared.NewHTTPError(shared.ErrTokenExchange, re.Response.StatusCode, conf.Endpoint.TokenURL, re.Body)
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, fmt.Errorf("%w: %w: token request exceeded %v", shared.ErrTokenExchange, shared.ErrTimeout, e.timeout)
		default:
			return nil, fmt.Errorf("%w: %w", shared.ErrTokenExchange, err)
		}
	}

	now := e.clock.Now()
	expiresAt := tok.Expiry
	if secs := expiresIn(tok); secs > 0 {
		expiresAt = now.Add(time.Duration(secs) * time.Second)
	} else if expiresAt.IsZero() {
		expiresAt = now.Add(time.Hour)
	}

	return &models.TokenSet{AccessToken: tok.AccessToken, ExpiresAt: expiresAt}, nil
}

// expiresIn reads the lifetime in seconds from the token response.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
