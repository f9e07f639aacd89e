package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spx/internal/shared"
)

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitConfig   = 2
	exitSecurity = 3
	exitTimeout  = 4
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := rootCommand(runner)

	err := app.Run(ctx, os.Args)
	stop()
	runner.Close()
	if err != nil {
		logger.Error("application error", "error", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, shared.ErrConfigMissing), errors.Is(err, shared.ErrInvalidConfig):
		return exitConfig
	case shared.IsSecurityError(err):
		return exitSecurity
	case errors.Is(err, shared.ErrTimeout):
		return exitTimeout
	default:
		return exitFailure
	}
}
