package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/ledger"
	"github.com/stupside/quire/internal/pipeline"
)

// collectCommand returns the "collect" CLI subcommand.
func collectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Gather gallery URLs from the catalogue listing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "File the URLs are appended to",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Stop after this many listing pages (0 for no limit)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			collect := cfg.Collect
			if cmd.IsSet("output") {
				collect.Output = cmd.String("output")
			}
			if cmd.IsSet("max-pages") {
				collect.MaxPages = int(cmd.Int("max-pages"))
			}

			site, err := gallery.NewSite(cfg.Site, collect.ListingPath)
			if err != nil {
				return err
			}

			out, err := ledger.Open(collect.Output)
			if err != nil {
				return err
			}

			s, err := startSession(ctx, cfg, site)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := pipeline.Collect(ctx, s.main, site, collect, out)
			if err != nil {
				return fmt.Errorf("collecting: %w", err)
			}

			slog.InfoContext(ctx, "collect complete", "new", n, "total", out.Len(), "output", out.Path())
			return nil
		},
	}
}
