package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the default configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	return r.writePlain("✓ Wrote %s. Set credentials.spotify.client_id before logging in.\n", r.configPath)
}

// ConfigShow prints the effective configuration as TOML, after environment overrides.
// The session secret is masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	cfg := *r.config
	if cfg.Session.Secret != "" {
		cfg.Session.Secret = "********"
	}
	if err := toml.NewEncoder(r.output).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}
