package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/stupside/quire/internal/imaging"
	"github.com/stupside/quire/internal/manifest"
	"github.com/stupside/quire/internal/storage"
)

// composeSpreads joins every ascending page pair that has no spread file yet.
// Pairs that are not ascending are skipped with a warning. Pairs are
// independent and are composed in parallel.
func (p *Pipeline) composeSpreads(ctx context.Context, slug string, spreads []manifest.Spread) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, s := range spreads {
		if !s.Valid() {
			slog.WarnContext(ctx, "skipping spread with non-ascending pages", "slug", slug, "a", s.A, "b", s.B)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return context.Cause(gctx)
			}
			return p.composeSpread(gctx, slug, s)
		})
	}

	return g.Wait()
}

func (p *Pipeline) composeSpread(ctx context.Context, slug string, s manifest.Spread) error {
	path := p.layout.Spread(slug, s.A, s.B)
	exists, err := storage.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	left, err := p.loadPage(slug, s.A)
	if err != nil {
		return fmt.Errorf("spread %s: %w", s, err)
	}
	right, err := p.loadPage(slug, s.B)
	if err != nil {
		return fmt.Errorf("spread %s: %w", s, err)
	}

	out, err := imaging.EncodePNG(imaging.JoinHorizontal(left, right))
	if err != nil {
		return fmt.Errorf("spread %s: %w", s, err)
	}
	if err := storage.WriteFile(path, out); err != nil {
		return err
	}
	slog.DebugContext(ctx, "spread written", "slug", slug, "spread", s.String())
	return nil
}

func (p *Pipeline) loadPage(slug string, page int) (image.Image, error) {
	path := p.layout.Page(slug, page)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("page %d has not been captured: %w", page, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading page %d: %w", page, err)
	}
	img, err := imaging.Opaque(data)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return img, nil
}
