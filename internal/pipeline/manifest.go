package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stupside/quire/internal/browser"
	"github.com/stupside/quire/internal/future"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/manifest"
)

// ErrManifestTimeout is returned when the reader never requested its page
// manifest within the configured deadline.
var ErrManifestTimeout = errors.New("manifest not received")

// acquireManifest opens the reader and captures the manifest it fetches.
// The interception is armed and the deadline started before navigating, and
// the deadline covers the navigation itself. A response arriving after the
// deadline is discarded, as is a navigation error once the manifest is in.
func (p *Pipeline) acquireManifest(ctx context.Context, tab Tab, item gallery.Item) (manifest.Manifest, error) {
	f := future.New[manifest.Manifest]()

	match := browser.Match{
		URLPattern:   p.cfg.Capture.ManifestPattern,
		ResourceType: p.cfg.Capture.ManifestResourceType,
	}
	err := tab.InterceptResponse(match, func(body []byte) {
		m, err := manifest.Parse(body)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(m)
	})
	if err != nil {
		return manifest.Manifest{}, err
	}

	timeout := p.cfg.Capture.ManifestTimeout
	wctx, cancel := context.WithTimeoutCause(ctx, timeout, fmt.Errorf("%w within %s", ErrManifestTimeout, timeout))
	defer cancel()

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		if err := tab.Navigate(p.site.ReaderURL(item.Slug)); err != nil {
			if !f.Reject(fmt.Errorf("opening reader: %w", err)) {
				slog.Debug("reader navigation failed after manifest", "slug", item.Slug, "error", err)
			}
		}
	}()

	m, err := f.Wait(wctx)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("acquiring manifest for %s: %w", item.Slug, err)
	}

	// let the load settle before the tab is driven further
	select {
	case <-loaded:
	case <-wctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return manifest.Manifest{}, context.Cause(ctx)
	}
	return m, nil
}
