package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/shared"
)

const defaultCallbackPath = "/callback"

// ProcessFunc runs the callback flow for the received parameters.
type ProcessFunc func(ctx context.Context, params auth.CallbackParams) *auth.Result

// LoopbackHandler receives the provider redirect during a CLI login.
//
// It accepts a single callback, runs it through the process function and delivers the
// result on [LoopbackHandler.Result]. The browser gets a plain text summary; on failure
// it includes the raw code and state so the user can recover by hand.
type LoopbackHandler struct {
	path        string
	process     ProcessFunc
	resultChan  chan *auth.Result
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewLoopbackHandler serves the path of redirectURI, "/callback" when it has none.
func NewLoopbackHandler(redirectURI string, process ProcessFunc) (*LoopbackHandler, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect uri %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}

	path := u.Path
	if path == "" || path == "/" {
		path = defaultCallbackPath
	}
	return &LoopbackHandler{
		path:       path,
		process:    process,
		resultChan: make(chan *auth.Result, 1),
	}, nil
}

// LoopbackAddr returns the host:port a loopback listener must bind for redirectURI.
//
// Only http redirect URIs on localhost, 127.0.0.1 or ::1 with an explicit port qualify.
func LoopbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect uri %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("%w: loopback redirect uri must use http, got %q", shared.ErrInvalidConfig, redirectURI)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		return "", fmt.Errorf("%w: loopback redirect uri %q needs a port", shared.ErrInvalidConfig, redirectURI)
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
	default:
		return "", fmt.Errorf("%w: redirect uri host %q is not a loopback address", shared.ErrInvalidConfig, host)
	}
	return net.JoinHostPort(host, port), nil
}

// Routes returns the HTTP routes this handler serves.
func (h *LoopbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the provider redirect.
func (h *LoopbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		writeText(w, http.StatusConflict, "Callback already processed. Return to the terminal.\n")
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	params := auth.ParseCallbackParams(r.URL.Query())
	res := h.process(context.WithoutCancel(r.Context()), params)
	defer h.Send(res)

	if res.OK() {
		writeText(w, http.StatusOK, "%s\n\nYou can close this window and return to the terminal.\n", summary(res))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Authorization failed: %v\n", res.Err)
	if params.Code != "" || params.State != "" {
		fmt.Fprintf(&b, "\ncode:  %s\nstate: %s\n", params.Code, params.State)
	}
	writeText(w, StatusFor(res.Err), "%s", b.String())
}

// Send delivers the result (only once).
func (h *LoopbackHandler) Send(result *auth.Result) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel receiving the callback outcome.
//
// Channel will receive exactly one result and then be closed.
func (h *LoopbackHandler) Result() <-chan *auth.Result {
	return h.resultChan
}

func summary(res *auth.Result) string {
	label := ""
	if res.Profile != nil {
		label = res.Profile.Label()
	}
	if res.Notice != "" {
		return fmt.Sprintf("Signed in as %s. %s", label, res.Notice)
	}
	return fmt.Sprintf("Signed in as %s. Loaded %d playlists.", label, len(res.Playlists))
}
