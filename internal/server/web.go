package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCookieName = "spx_session"
	sessionKeyFlow    = "flow"
	sessionMaxAge     = 3600
)

// SessionStore is the per-flow storage web mode needs.
//
// Implemented by [repositories.SessionStore].
type SessionStore interface {
	auth.FlowStore
	Token(ctx context.Context, flowID string) (*models.TokenSet, error)
	Clear(ctx context.Context, flowID string) error
}

// WebOpts configures a [WebApp].
type WebOpts struct {
	Config    *shared.Config
	Store     SessionStore
	Exchanger auth.Exchanger
	Service   services.Service
	Cookies   sessions.Store // Defaults to a cookie store keyed by the configured secret
	Clock     clockwork.Clock
	Logger    *log.Logger
}

// WebApp serves the JSON web mode.
//
// The browser holds only a signed cookie naming its flow id. Verifier, state and token
// stay in the session store.
type WebApp struct {
	cfg        shared.SpotifyConfig
	cookieName string
	cookies    sessions.Store
	store      SessionStore
	initiator  *auth.Initiator
	callback   *auth.CallbackHandler
	srv        services.Service
	engine     *tasks.ExportEngine
	clock      clockwork.Clock
	logger     *log.Logger
}

type statusResponse struct {
	Configured    bool   `json:"configured"`
	Error         string `json:"error,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Login         string `json:"login,omitempty"`
}

type callbackResponse struct {
	Status string `json:"status"`
	*auth.Result
	Error string `json:"error,omitempty"`
}

type playlistsResponse struct {
	Playlists []models.PlaylistSummary `json:"playlists"`
	Notice    string                   `json:"notice,omitempty"`
}

type tracksResponse struct {
	Playlist string         `json:"playlist"`
	Tracks   []models.Track `json:"tracks"`
}

// NewWebApp creates the web mode handlers.
func NewWebApp(opts WebOpts) *WebApp {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Cookies == nil {
		opts.Cookies = NewCookieStore(opts.Config.Session.Secret)
	}

	cookieName := opts.Config.Session.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	spotify := opts.Config.Credentials.Spotify
	return &WebApp{
		cfg:        spotify,
		cookieName: cookieName,
		cookies:    opts.Cookies,
		store:      opts.Store,
		initiator:  auth.NewInitiator(spotify, opts.Store, opts.Logger),
		callback: auth.NewCallbackHandler(auth.CallbackOpts{
			Config:    spotify,
			Store:     opts.Store,
			Exchanger: opts.Exchanger,
			Service:   opts.Service,
			Logger:    opts.Logger,
		}),
		srv:    opts.Service,
		engine: tasks.NewExportEngine(opts.Service, opts.Clock, opts.Logger),
		clock:  opts.Clock,
		logger: shared.WithLogger(opts.Logger, "component", "web"),
	}
}

// NewCookieStore creates the session cookie store.
//
// An empty secret gets a random key, so sessions do not survive a restart.
func NewCookieStore(secret string) *sessions.CookieStore {
	key := []byte(secret)
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Register adds the web mode routes to r.
func (a *WebApp) Register(r Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleIndex))
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(a.handleLogin))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.handleCallback))
	r.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.handleLogout))
	r.Handle(http.MethodGet, "/playlists", http.HandlerFunc(a.handlePlaylists))
	r.Handle(http.MethodGet, "/playlists/{id}/tracks", http.HandlerFunc(a.handleTracks))
	r.Handle(http.MethodGet, "/playlists/{id}/tracks.txt", http.HandlerFunc(a.handleTracksText))
	r.Handle(http.MethodGet, "/playlists/{id}/download", http.HandlerFunc(a.handleDownload))
}

// Handler returns a router serving the web mode routes.
func (a *WebApp) Handler() http.Handler {
	r := NewRouter(a.logger)
	a.Register(r)
	return r
}

func (a *WebApp) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Configured: true, Login: "/login"}
	if err := a.configError(); err != nil {
		resp = statusResponse{Error: err.Error()}
	}
	if _, err := a.token(r); err == nil {
		resp.Authenticated = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *WebApp) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := a.configError(); err != nil {
		writeError(w, StatusFor(err), err)
		return
	}

	session := a.session(r)
	flowID, _ := session.Values[sessionKeyFlow].(string)
	if flowID == "" {
		flowID = shared.GenerateID()
	}

	authURL, err := a.initiator.Start(r.Context(), flowID)
	if err != nil {
		a.logger.Error("failed to start authorization", "error", err)
		writeError(w, StatusFor(err), err)
		return
	}

	session.Values[sessionKeyFlow] = flowID
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to save session: %w", err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback runs the callback flow. Failures answer with the raw code and state.
func (a *WebApp) handleCallback(w http.ResponseWriter, r *http.Request) {
	flowID, _ := a.session(r).Values[sessionKeyFlow].(string)
	params := auth.ParseCallbackParams(r.URL.Query())

	res := a.callback.Handle(r.Context(), flowID, params)
	if res.Playlists == nil {
		res.Playlists = []models.PlaylistSummary{}
	}

	resp := callbackResponse{Status: res.State.String(), Result: res}
	if !res.OK() {
		resp.Error = res.Err.Error()
		writeJSON(w, StatusFor(res.Err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *WebApp) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := a.session(r)
	if flowID, _ := session.Values[sessionKeyFlow].(string); flowID != "" {
		if err := a.store.Clear(r.Context(), flowID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to clear session: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

func (a *WebApp) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	token, err := a.token(r)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}

	playlists, err := a.srv.Playlists(r.Context(), token)
	if err != nil {
		a.fail(w, err)
		return
	}

	resp := playlistsResponse{Playlists: playlists}
	if len(playlists) == 0 {
		resp.Playlists = []models.PlaylistSummary{}
		resp.Notice = auth.NoPlaylistsNotice
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *WebApp) handleTracks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tracks, ok := a.tracks(w, r, id)
	if !ok {
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, tracksResponse{Playlist: id, Tracks: tracks})
}

func (a *WebApp) handleTracksText(w http.ResponseWriter, r *http.Request) {
	tracks, ok := a.tracks(w, r, r.PathValue("id"))
	if !ok {
		return
	}

	text := formatter.ToTextList(tracks)
	if text != "" {
		text += "\n"
	}
	writeText(w, http.StatusOK, "%s", text)
}

// handleDownload answers with the JSON export of a playlist as an attachment.
func (a *WebApp) handleDownload(w http.ResponseWriter, r *http.Request) {
	token, err := a.token(r)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return
	}

	playlist, err := a.engine.FindPlaylist(r.Context(), token, r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}

	tracks, err := a.srv.PlaylistTracks(r.Context(), token, playlist.ID)
	if err != nil {
		a.fail(w, err)
		return
	}

	data, err := formatter.ExportToJSON(formatter.ToDownloadPayload(tracks, playlist.Name, a.clock.Now()))
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", formatter.DownloadFileName(playlist.Name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *WebApp) tracks(w http.ResponseWriter, r *http.Request, id string) ([]models.Track, bool) {
	token, err := a.token(r)
	if err != nil {
		writeError(w, StatusFor(err), err)
		return nil, false
	}

	tracks, err := a.srv.PlaylistTracks(r.Context(), token, id)
	if err != nil {
		a.fail(w, err)
		return nil, false
	}
	return tracks, true
}

func (a *WebApp) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if httpErr, ok := shared.AsHTTPError(err); ok && httpErr.Status == http.StatusNotFound {
		status = http.StatusNotFound
	}
	a.logger.Warn("request failed", "status", status, "error", err)
	writeError(w, status, err)
}

// session returns the cookie session, a fresh one when the cookie is missing or invalid.
func (a *WebApp) session(r *http.Request) *sessions.Session {
	session, err := a.cookies.Get(r, a.cookieName)
	if err != nil {
		a.logger.Debug("discarding invalid session cookie", "error", err)
	}
	return session
}

func (a *WebApp) token(r *http.Request) (string, error) {
	flowID, _ := a.session(r).Values[sessionKeyFlow].(string)
	if flowID == "" {
		return "", fmt.Errorf("%w: sign in at /login", shared.ErrNotAuthenticated)
	}

	tok, err := a.store.Token(r.Context(), flowID)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return "", fmt.Errorf("%w: sign in again at /login", err)
		}
		return "", err
	}
	return tok.AccessToken, nil
}

func (a *WebApp) configError() error {
	if a.cfg.ClientIDOrEmpty() == "" {
		return fmt.Errorf("%w: set credentials.spotify.client_id or SPOTIFY_CLIENT_ID", shared.ErrConfigMissing)
	}
	if a.cfg.RedirectURI == "" {
		return fmt.Errorf("%w: set credentials.spotify.redirect_uri", shared.ErrConfigMissing)
	}
	return nil
}
