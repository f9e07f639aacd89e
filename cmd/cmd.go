// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Export format: json, txt, csv or md (default from config)",
	}
}

func outputFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   usage,
	}
}

func playlistFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Playlist ID or name",
		Required: true,
	}
}

func copyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "copy",
		Usage: "Copy the numbered track list to the clipboard",
	}
}

// rootCommand builds the spx application.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spx",
		Usage:   "Sign in to Spotify with PKCE and export your playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Setup,
		Commands: r.register(),
	}
}

// loginCommand signs in through the browser.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage: "Sign in through the browser and list your playlists",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{
				Name:  "copy-code",
				Usage: "Copy the raw authorization code to the clipboard if sign-in fails",
			},
		},
		Action: r.Login,
	}
}

// playlistsCommand lists playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List your playlists",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Playlists,
	}
}

// tracksCommand prints the track list of one playlist.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tracks",
		Usage:  "Print the numbered track list of a playlist",
		Flags:  []cli.Flag{playlistFlag(), jsonFlag(), copyFlag()},
		Action: r.Tracks,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export one playlist to a file",
		Flags: []cli.Flag{
			playlistFlag(),
			formatFlag(),
			outputFlag("Output directory (default from config)"),
			copyFlag(),
		},
		Action: r.Export,
	}
}

func exportAllCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export-all",
		Usage: "Export every playlist with a manifest",
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag("Output directory (default: spotify_export_{epoch})"),
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent workers, at most 10 (default from config)",
			},
			&cli.StringFlag{
				Name:  "rate",
				Usage: "Playlists started per second (default from config)",
			},
		},
		Action: r.ExportAll,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Sign in and browse playlists interactively",
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag("Directory for exports started from the UI"),
		},
		Action: r.TUI,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local web mode (JSON endpoints)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] in config)",
			},
		},
		Action: r.Serve,
	}
}

func pkceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pkce",
		Usage:  "Print a fresh PKCE verifier, challenge and state",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.PKCE,
	}
}

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the default configuration to --config",
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}
