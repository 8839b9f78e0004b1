package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/version"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "quire",
		Usage:   "Archive galleries from a canvas-rendered online reader",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Run the browser without a window",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "user-data-dir",
				Usage:   "Browser profile directory",
				Sources: cli.EnvVars("USER_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "download-dir",
				Usage:   "Directory galleries are written to",
				Sources: cli.EnvVars("DOWNLOAD_DIR"),
			},
			&cli.BoolFlag{
				Name:  "spreads",
				Usage: "Join two-page spreads into a single image",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			downloadCommand(),
			collectCommand(),
			{
				Name:  "info",
				Usage: "Print build information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					slog.Info("build",
						"version", version.Version,
						"commit", version.Commit,
						"build_time", version.BuildTime,
					)
					return nil
				},
			},
		},
		Metadata: map[string]any{},
	}
}

// ExitCode maps an error returned by Root to a process exit status: 2 when
// the command line or its inputs were rejected before any work started, 1
// otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, gallery.ErrInvalidIdentifier):
		return 2
	default:
		return 1
	}
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cmd *cli.Command, cfg *app.Config) error {
	if cmd.IsSet("headless") {
		cfg.Browser.Headless = cmd.Bool("headless")
	}
	if cmd.IsSet("user-data-dir") {
		cfg.Browser.UserDataDir = cmd.String("user-data-dir")
	}
	if cmd.IsSet("download-dir") {
		cfg.Storage.DownloadDir = cmd.String("download-dir")
	}
	if cmd.IsSet("spreads") {
		cfg.Spreads = cmd.Bool("spreads")
	}
	return cfg.Validate()
}
