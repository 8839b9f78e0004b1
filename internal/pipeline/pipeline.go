// Package pipeline downloads gallery items through a browser tab: it reads
// the item metadata, captures the page manifest, renders every page out of
// the reader canvas and joins spreads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/browser"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/gesture"
	"github.com/stupside/quire/internal/ledger"
	"github.com/stupside/quire/internal/metadata"
	"github.com/stupside/quire/internal/storage"
	"github.com/stupside/quire/internal/ui"
)

// ErrIncomplete is returned by Run when at least one item failed.
var ErrIncomplete = errors.New("some items failed")

// Tab is the browser surface the pipeline drives. *browser.Tab implements it.
type Tab interface {
	Navigate(url string) error
	HTML() (string, error)
	Exists(selector string) (bool, error)
	InterceptResponse(m browser.Match, fn func(body []byte)) error
	MarkCanvas(selector string, page int) (bool, error)
	ExtractCanvas(selector string, page int) (string, error)
	Dispatch(ev gesture.Event) error
	Cookies() ([]browser.Cookie, error)
	SetCookies(cookies []browser.Cookie) error
	Snapshot(dir, label string)
	Close()
}

// Opener opens a fresh tab for one item.
type Opener func() (Tab, error)

// Summary counts the outcome of a batch.
type Summary struct {
	Completed int
	Skipped   int
	Failed    []string
}

// Pipeline downloads items one at a time. It is not safe for concurrent use:
// items share one browser and are processed strictly in order.
type Pipeline struct {
	cfg      *app.Config
	site     *gallery.Site
	ledger   *ledger.Ledger
	layout   storage.Layout
	open     Opener
	rng      *rand.Rand
	sleep    func(ctx context.Context, d time.Duration) error
	reporter ui.Reporter
	debugDir string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRand sets the source of gesture randomness.
func WithRand(r *rand.Rand) Option {
	return func(p *Pipeline) { p.rng = r }
}

// WithSleep replaces the function used for gesture holds and page delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

// WithReporter sets the progress reporter.
func WithReporter(r ui.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// New creates a Pipeline writing under cfg.Storage.DownloadDir and recording
// finished items in l.
func New(cfg *app.Config, site *gallery.Site, l *ledger.Ledger, open Opener, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		site:     site,
		ledger:   l,
		layout:   storage.Layout{Root: cfg.Storage.DownloadDir},
		open:     open,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep:    sleep,
		reporter: ui.Discard{},
		debugDir: ".debug",
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run downloads items in order. Items already in the ledger are skipped
// without touching the browser. A failing item is logged and left out of the
// ledger so the next run retries it; the batch goes on. Run stops early only
// when ctx ends or the ledger cannot be written.
func (p *Pipeline) Run(ctx context.Context, items []gallery.Item) (Summary, error) {
	var sum Summary

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, context.Cause(ctx)
		}

		if p.ledger.Contains(item.URL) {
			slog.InfoContext(ctx, "already downloaded", "slug", item.Slug)
			sum.Skipped++
			continue
		}

		start := time.Now()
		if err := p.Item(ctx, item); err != nil {
			if ctx.Err() != nil {
				return sum, context.Cause(ctx)
			}
			slog.ErrorContext(ctx, "item failed", "slug", item.Slug, "error", err)
			sum.Failed = append(sum.Failed, item.Slug)
			continue
		}

		if err := p.ledger.Add(item.URL); err != nil {
			return sum, fmt.Errorf("recording %s: %w", item.Slug, err)
		}
		sum.Completed++

		slog.InfoContext(ctx, "finished", "slug", item.Slug, "elapsed", time.Since(start).Round(time.Millisecond))
	}

	if len(sum.Failed) > 0 {
		return sum, fmt.Errorf("%w: %d of %d (%s)", ErrIncomplete, len(sum.Failed), len(items), strings.Join(sum.Failed, ", "))
	}
	return sum, nil
}

// Pending returns the items not yet in l, in order, and how many were left
// out.
func Pending(items []gallery.Item, l *ledger.Ledger) ([]gallery.Item, int) {
	var pending []gallery.Item
	for _, item := range items {
		if !l.Contains(item.URL) {
			pending = append(pending, item)
		}
	}
	return pending, len(items) - len(pending)
}

// Item downloads a single item in a fresh tab. It does not consult or update
// the ledger.
func (p *Pipeline) Item(ctx context.Context, item gallery.Item) (err error) {
	tab, err := p.open()
	if err != nil {
		return fmt.Errorf("opening tab: %w", err)
	}
	defer tab.Close()

	defer func() {
		if err != nil {
			tab.Snapshot(filepath.Join(p.debugDir, item.Slug), "failed")
		}
	}()

	slog.InfoContext(ctx, "reading metadata", "slug", item.Slug)
	meta, err := p.readMetadata(tab, item)
	if err != nil {
		return err
	}

	m, err := p.acquireManifest(ctx, tab, item)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "manifest captured", "slug", item.Slug, "pages", len(m.Pages), "spreads", len(m.Spreads))

	tracker := p.reporter.Track(item.Slug, len(m.Pages))
	if err := p.capturePages(ctx, tab, item.Slug, m.Pages, tracker); err != nil {
		tracker.Abort()
		return err
	}
	tracker.Done()

	if p.cfg.Spreads && len(m.Spreads) > 0 {
		slog.InfoContext(ctx, "creating spreads", "slug", item.Slug)
		if err := p.composeSpreads(ctx, item.Slug, m.Spreads); err != nil {
			return err
		}
	}

	data, err := metadata.Encode(meta)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(p.layout.Info(item.Slug), data); err != nil {
		return err
	}

	return nil
}

func (p *Pipeline) readMetadata(tab Tab, item gallery.Item) (*metadata.Metadata, error) {
	if err := tab.Navigate(item.URL); err != nil {
		return nil, err
	}
	html, err := tab.HTML()
	if err != nil {
		return nil, err
	}
	meta, err := metadata.Extract(strings.NewReader(html), item.URL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", item.URL, err)
	}
	return meta, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
