package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stupside/quire/internal/gesture"
	"github.com/stupside/quire/internal/imaging"
	"github.com/stupside/quire/internal/manifest"
	"github.com/stupside/quire/internal/poll"
	"github.com/stupside/quire/internal/storage"
	"github.com/stupside/quire/internal/ui"
)

// ErrPageCapture is wrapped by every PageCaptureError.
var ErrPageCapture = errors.New("page capture failed")

var errEmptyCanvas = errors.New("canvas produced no image data")

// PageCaptureError reports a page whose bitmap could not be read from the
// reader. It aborts the item it belongs to.
type PageCaptureError struct {
	Page int
	Err  error
}

func (e *PageCaptureError) Error() string {
	return fmt.Sprintf("capturing page %d: %v", e.Page, e.Err)
}

func (e *PageCaptureError) Unwrap() []error {
	return []error{ErrPageCapture, e.Err}
}

// PageState is the outcome of one page of the capture loop.
type PageState int

const (
	PagePending PageState = iota
	PageSkipped
	PageCaptured
	PageFailed
)

func (s PageState) String() string {
	switch s {
	case PagePending:
		return "pending"
	case PageSkipped:
		return "skipped"
	case PageCaptured:
		return "captured"
	case PageFailed:
		return "failed"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// capturePages walks the manifest in its own order. Each page is finished,
// file written, before the reader is moved on to the next one.
func (p *Pipeline) capturePages(ctx context.Context, tab Tab, slug string, pages []manifest.Page, tracker ui.Tracker) error {
	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}

		state, n, err := p.capturePage(ctx, tab, slug, pg.Number)
		slog.DebugContext(ctx, "page", "slug", slug, "page", pg.Number, "state", state)
		if err != nil {
			return err
		}
		tracker.Page(n)

		if err := p.turnPage(ctx, tab); err != nil {
			return err
		}

		if state == PageCaptured {
			g := p.cfg.Capture.Gesture
			if err := p.sleep(ctx, gesture.Between(p.rng, g.PageDelayMin, g.PageDelayMax)); err != nil {
				return err
			}
		}
	}
	return nil
}

// capturePage renders one page to disk unless its bitmap already exists.
// It returns the number of bytes written.
func (p *Pipeline) capturePage(ctx context.Context, tab Tab, slug string, page int) (PageState, int, error) {
	path := p.layout.Page(slug, page)

	exists, err := storage.Exists(path)
	if err != nil {
		return PageFailed, 0, err
	}
	if exists {
		return PageSkipped, 0, nil
	}

	sel := p.cfg.Capture.CanvasSelector
	policy := poll.Policy{
		Interval: p.cfg.Capture.PollInterval,
		Attempts: p.cfg.Capture.PollAttempts,
	}

	err = poll.Until(ctx, policy, func(context.Context) (bool, error) {
		return tab.MarkCanvas(sel, page)
	})
	if err != nil {
		if ctx.Err() != nil {
			return PageFailed, 0, context.Cause(ctx)
		}
		return PageFailed, 0, &PageCaptureError{Page: page, Err: fmt.Errorf("waiting for render surface: %w", err)}
	}

	dataURL, err := tab.ExtractCanvas(sel, page)
	if err != nil {
		return PageFailed, 0, &PageCaptureError{Page: page, Err: err}
	}
	if dataURL == "" {
		return PageFailed, 0, &PageCaptureError{Page: page, Err: errEmptyCanvas}
	}

	raw, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		return PageFailed, 0, &PageCaptureError{Page: page, Err: err}
	}
	img, err := imaging.Opaque(raw)
	if err != nil {
		return PageFailed, 0, &PageCaptureError{Page: page, Err: err}
	}
	out, err := imaging.EncodePNG(img)
	if err != nil {
		return PageFailed, 0, err
	}

	if err := storage.WriteFile(path, out); err != nil {
		return PageFailed, 0, err
	}
	return PageCaptured, len(out), nil
}

// turnPage performs a humanized press and release on the reader, which also
// advances it to the next page.
func (p *Pipeline) turnPage(ctx context.Context, tab Tab) error {
	g := p.cfg.Capture.Gesture
	gs := gesture.Random(p.rng, gesture.Bounds{
		RegionMin: g.RegionMin,
		RegionMax: g.RegionMax,
		Jitter:    g.Jitter,
		HoldMin:   g.HoldMin,
		HoldMax:   g.HoldMax,
	})

	if err := tab.Dispatch(gs.Press); err != nil {
		return err
	}
	if err := p.sleep(ctx, gs.Hold); err != nil {
		return err
	}
	return tab.Dispatch(gs.Release)
}
