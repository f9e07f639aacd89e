// package server contains the HTTP plumbing for the loopback callback listener and web mode
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the routes it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Listener is a started HTTP server.
type Listener struct {
	srv  *http.Server
	ln   net.Listener
	errc chan error
}

// Listen binds addr and serves h in the background.
//
// Binding happens before Listen returns so callers can report a busy port before
// sending the user anywhere.
func Listen(addr string, h http.Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		errc: make(chan error, 1),
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errc <- err
		}
		close(l.errc)
	}()
	return l, nil
}

// Addr is the bound address, useful when listening on port 0.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Err delivers a serve failure and is closed once the server stops.
func (l *Listener) Err() <-chan error {
	return l.errc
}

// Shutdown gracefully stops the server.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}

// Run serves h on addr until ctx is done.
func Run(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	l, err := Listen(addr, h)
	if err != nil {
		return err
	}
	logger.Info("listening", "addr", "http://"+l.Addr())

	select {
	case err, ok := <-l.Err():
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	return l.Shutdown(shutdownCtx)
}
