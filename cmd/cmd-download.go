package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/ledger"
	"github.com/stupside/quire/internal/pipeline"
	"github.com/stupside/quire/internal/ui"
)

var errUsage = errors.New("usage")

// downloadCommand returns the "download" CLI subcommand.
func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download galleries by URL",
		ArgsUsage: "[URL...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read gallery URLs from a file, one per line",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			raws, err := inputs(cmd)
			if err != nil {
				return err
			}

			site, err := gallery.NewSite(cfg.Site, cfg.Collect.ListingPath)
			if err != nil {
				return err
			}
			// Every input is checked before the browser starts.
			items, err := site.ResolveAll(raws)
			if err != nil {
				return err
			}

			done, err := ledger.Open(cfg.Storage.LedgerPath)
			if err != nil {
				return err
			}

			items, skipped := pipeline.Pending(items, done)
			if len(items) == 0 {
				slog.InfoContext(ctx, "nothing to download", "skipped", skipped)
				return nil
			}

			s, err := startSession(ctx, cfg, site)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []pipeline.Option{}
			var progress *ui.Progress
			if cfg.Progress {
				progress = ui.NewProgress(os.Stderr)
				opts = append(opts, pipeline.WithReporter(progress))
			}

			p := pipeline.New(cfg, site, done, s.open, opts...)
			sum, err := p.Run(ctx, items)
			sum.Skipped += skipped
			if progress != nil {
				progress.Wait()
			}

			slog.InfoContext(ctx, "download complete",
				"completed", sum.Completed,
				"skipped", sum.Skipped,
				"failed", len(sum.Failed),
			)
			return err
		},
	}
}

// inputs returns the raw identifiers from either the positional arguments or
// the --file list. Exactly one of the two must be given.
func inputs(cmd *cli.Command) ([]string, error) {
	args := cmd.Args().Slice()
	path := cmd.String("file")

	switch {
	case path != "" && len(args) > 0:
		return nil, fmt.Errorf("%w: pass URLs as arguments or with --file, not both", errUsage)
	case path == "" && len(args) == 0:
		return nil, fmt.Errorf("%w: no URLs given", errUsage)
	case len(args) > 0:
		return args, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL list: %w", err)
	}
	defer f.Close()

	raws, err := gallery.ReadList(f)
	if err != nil {
		return nil, fmt.Errorf("reading URL list %s: %w", path, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: %s lists no URLs", errUsage, path)
	}
	return raws, nil
}
