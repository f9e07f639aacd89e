package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// loginOutput is the JSON shape of a successful login.
type loginOutput struct {
	*auth.Result
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login signs in through the browser and prints the profile and playlists.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	r.copyCode = cmd.Bool("copy-code")

	res, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(loginOutput{Result: res, ExpiresAt: res.Token().ExpiresAt}, true)
	}

	r.writePlainln("✓ Signed in as %s", res.Profile.Label())
	return r.writePlain("%s", ui.PlaylistTable(res.Playlists))
}

// accessToken returns the token of the current session, signing in first when there is none.
func (r *Runner) accessToken(ctx context.Context) (string, error) {
	if r.flowID != "" {
		store, err := r.sessions()
		if err != nil {
			return "", err
		}
		tok, err := store.Token(ctx, r.flowID)
		if err == nil {
			return tok.AccessToken, nil
		}
		if !errors.Is(err, shared.ErrTokenExpired) && !errors.Is(err, shared.ErrNotAuthenticated) {
			return "", err
		}
		r.logger.Info("session ended, signing in again", "reason", err)
	}

	res, err := r.authorize(ctx)
	if err != nil {
		return "", err
	}
	return res.Token().AccessToken, nil
}

// authorize runs one loopback login.
//
// It binds the redirect URI's port, opens the browser on the authorization URL and waits
// for a single callback. The callback flow reports its progress on the runner output.
func (r *Runner) authorize(ctx context.Context) (*auth.Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	cfg := r.config.Credentials.Spotify
	addr, err := server.LoopbackAddr(cfg.RedirectURI)
	if err != nil {
		return nil, err
	}

	store, err := r.sessions()
	if err != nil {
		return nil, err
	}

	flowID := shared.GenerateID()
	logger := shared.WithLogger(r.logger, "flow", flowID)

	authURL, err := auth.NewInitiator(cfg, store, logger).Start(ctx, flowID)
	if err != nil {
		return nil, err
	}

	callback := auth.NewCallbackHandler(auth.CallbackOpts{
		Config:    cfg,
		Store:     store,
		Exchanger: r.tokenExchanger(),
		Service:   r.spotify(),
		Presenter: ui.NewTextPresenter(r.output),
		Logger:    logger,
	})
	handler, err := server.NewLoopbackHandler(cfg.RedirectURI, func(ctx context.Context, params auth.CallbackParams) *auth.Result {
		return callback.Handle(ctx, flowID, params)
	})
	if err != nil {
		return nil, err
	}

	router := server.NewRouter(r.logger)
	router.Handler(handler)

	listener, err := server.Listen(addr, router)
	if err != nil {
		store.DeleteFlow(ctx, flowID)
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := listener.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()
	logger.Debug("callback server started", "addr", listener.Addr())

	r.writePlain("→ Opening browser for Spotify login...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.loginTimeout)

	timeout := r.clock.NewTimer(r.loginTimeout)
	defer timeout.Stop()

	var res *auth.Result
	select {
	case res = <-handler.Result():
	case err, ok := <-listener.Err():
		if !ok {
			err = errors.New("callback server stopped")
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.Chan():
		store.DeleteFlow(context.WithoutCancel(ctx), flowID)
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.loginTimeout)
	case <-ctx.Done():
		store.DeleteFlow(context.WithoutCancel(ctx), flowID)
		return nil, ctx.Err()
	}

	if !res.OK() {
		if r.copyCode && res.Params.Code != "" {
			r.copyAuthCode(res.Params.Code)
		}
		return nil, fmt.Errorf("authorization failed: %w", res.Err)
	}

	r.flowID = flowID
	return res, nil
}

// copyAuthCode puts the raw code of a failed callback on the clipboard for a manual exchange.
func (r *Runner) copyAuthCode(code string) {
	if err := r.copy(code); err != nil {
		if errors.Is(err, shared.ErrClipboardUnavailable) {
			r.writePlain("⚠ Clipboard unavailable. Copy the code printed above instead.\n")
			return
		}
		r.logger.Warn("failed to copy authorization code", "error", err)
		return
	}
	r.writePlain("✓ Copied the authorization code to the clipboard\n")
}
