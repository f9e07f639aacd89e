package main

import (
	"context"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/urfave/cli/v3"
)

type pkceOutput struct {
	Verifier  string `json:"verifier"`
	Challenge string `json:"challenge"`
	Method    string `json:"method"`
	State     string `json:"state"`
}

// PKCE prints a fresh verifier, its S256 challenge and a state nonce.
func (r *Runner) PKCE(ctx context.Context, cmd *cli.Command) error {
	verifier, err := auth.GenerateVerifier()
	if err != nil {
		return err
	}
	state, err := auth.GenerateState()
	if err != nil {
		return err
	}

	out := pkceOutput{Verifier: verifier, Challenge: auth.Challenge(verifier), Method: "S256", State: state}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlain("verifier:  %s\n", out.Verifier)
	r.writePlain("challenge: %s\n", out.Challenge)
	r.writePlain("method:    %s\n", out.Method)
	return r.writePlain("state:     %s\n", out.State)
}
