package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The process is the session: the first command that needs an access token runs the
// loopback login, and the token lives in the session store until the process exits.
type Runner struct {
	config       *shared.Config
	configPath   string
	service      services.Service
	exchanger    auth.Exchanger
	store        *repositories.SessionStore
	httpClient   *http.Client
	clock        clockwork.Clock
	logger       *log.Logger
	output       io.Writer
	openBrowser  func(string) error
	copy         func(string) error
	getenv       func(string) string
	loginTimeout time.Duration

	flowID   string
	copyCode bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Service, Exchanger and Store are built from the loaded configuration when left nil.
type RunnerOpts struct {
	Config       *shared.Config
	ConfigPath   string
	Service      services.Service
	Exchanger    auth.Exchanger
	Store        *repositories.SessionStore
	HTTPClient   *http.Client
	Clock        clockwork.Clock
	Logger       *log.Logger
	Output       io.Writer
	OpenBrowser  func(string) error
	Copy         func(string) error
	Getenv       func(string) string
	LoginTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Copy == nil {
		opts.Copy = ui.CopyToClipboard
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = defaultLoginTimeout
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		service:      opts.Service,
		exchanger:    opts.Exchanger,
		store:        opts.Store,
		httpClient:   opts.HTTPClient,
		clock:        opts.Clock,
		logger:       opts.Logger,
		output:       opts.Output,
		openBrowser:  opts.OpenBrowser,
		copy:         opts.Copy,
		getenv:       opts.Getenv,
		loginTimeout: opts.LoginTimeout,
	}
}

// SetLogger replaces the logger used by the runner and the services it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Setup runs before every command: it loads the configuration file named by --config,
// applies environment overrides and sets the log level.
//
// A missing config file keeps the current configuration so `config init` can create it.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	r.configPath = path

	switch _, err := os.Stat(path); {
	case err == nil:
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded configuration", "path", path)
	case errors.Is(err, os.ErrNotExist):
		if cmd.IsSet("config") {
			r.logger.Warn("config file not found, using defaults", "path", path)
		}
	default:
		return ctx, fmt.Errorf("%w: config file %s: %v", shared.ErrInvalidConfig, path, err)
	}

	r.config.ApplyEnv(r.getenv)
	return ctx, nil
}

// Close releases the session store.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	r.flowID = ""
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, playlistsCommand, tracksCommand, exportCommand, exportAllCommand,
		tuiCommand, serveCommand, pkceCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// spotify returns the injected service or one built from the current configuration.
func (r *Runner) spotify() services.Service {
	if r.service == nil {
		cfg := r.config.Credentials.Spotify
		r.service = services.NewSpotifyService(services.SpotifyOpts{
			BaseURL:           cfg.APIURL,
			HTTPClient:        r.httpClient,
			Timeout:           r.config.HTTP.Timeout(),
			RequestsPerSecond: r.config.HTTP.RequestsPerSecond,
			Logger:            r.logger,
		})
	}
	return r.service
}

func (r *Runner) tokenExchanger() auth.Exchanger {
	if r.exchanger == nil {
		r.exchanger = auth.NewOAuthExchanger(r.config.Credentials.Spotify, r.httpClient, r.clock, r.config.HTTP.Timeout())
	}
	return r.exchanger
}

func (r *Runner) sessions() (*repositories.SessionStore, error) {
	if r.store == nil {
		store, err := repositories.OpenSessionStore(r.config.Database.Path, r.clock)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r.store, nil
}

func (r *Runner) engine() *tasks.ExportEngine {
	return tasks.NewExportEngine(r.spotify(), r.clock, r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
