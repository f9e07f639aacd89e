package main

import (
	"context"

	"github.com/desertthunder/spx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs web mode until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	store, err := r.sessions()
	if err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}

	app := server.NewWebApp(server.WebOpts{
		Config:    r.config,
		Store:     store,
		Exchanger: r.tokenExchanger(),
		Service:   r.spotify(),
		Cookies:   server.NewCookieStore(r.config.Session.Secret),
		Clock:     r.clock,
		Logger:    r.logger,
	})

	if err := r.config.Validate(); err != nil {
		r.logger.Warn("login is disabled until a client id is configured", "error", err)
	}
	r.writePlain("→ Serving on http://%s (press ctrl+c to stop)\n", addr)
	return server.Run(ctx, addr, app.Handler(), r.logger)
}
