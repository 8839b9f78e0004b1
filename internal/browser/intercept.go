package browser

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Match selects the responses an interception pauses on. URLPattern uses the
// CDP wildcard syntax ("*" and "?").
type Match struct {
	URLPattern   string
	ResourceType string
}

type interception struct {
	match Match
	fn    func(body []byte)
	fired atomic.Bool
}

// InterceptResponse arranges for fn to receive the body of the first response
// matching m that carries a non-empty body. fn runs at most once, on a
// chromedp event goroutine; afterwards the Fetch domain is disabled so later
// navigations pass through untouched.
//
// The interception is active when InterceptResponse returns, so it must be
// called before the navigation that triggers the response.
func (t *Tab) InterceptResponse(m Match, fn func(body []byte)) error {
	t.mu.Lock()
	t.intercept = &interception{match: m, fn: fn}
	t.mu.Unlock()

	pattern := &fetch.RequestPattern{
		URLPattern:   m.URLPattern,
		RequestStage: fetch.RequestStageResponse,
	}
	if m.ResourceType != "" {
		pattern.ResourceType = network.ResourceType(m.ResourceType)
	}

	if err := t.run(fetch.Enable().WithPatterns([]*fetch.RequestPattern{pattern})); err != nil {
		return fmt.Errorf("enabling interception for %s: %w", m.URLPattern, err)
	}
	return nil
}

// listen is registered with chromedp.ListenTarget for the tab's lifetime.
func (t *Tab) listen(ev any) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		// CDP calls from inside the listener would deadlock the event loop.
		go t.handlePaused(e)
	}
}

func (t *Tab) handlePaused(e *fetch.EventRequestPaused) {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(t.ctx, c.Target)

	t.mu.Lock()
	ic := t.intercept
	t.mu.Unlock()

	var body []byte
	if ic != nil && !ic.fired.Load() && e.ResponseStatusCode != 0 {
		b, err := fetch.GetResponseBody(e.RequestID).Do(ctx)
		if err != nil {
			slog.DebugContext(ctx, "intercept: reading body failed", "url", e.Request.URL, "error", err)
		}
		body = b
	}

	if err := fetch.ContinueRequest(e.RequestID).Do(ctx); err != nil {
		slog.DebugContext(ctx, "intercept: continue failed", "url", e.Request.URL, "error", err)
	}

	if len(body) == 0 || !ic.fired.CompareAndSwap(false, true) {
		return
	}

	slog.DebugContext(ctx, "intercept: captured response", "url", e.Request.URL, "bytes", len(body))
	ic.fn(body)

	if err := fetch.Disable().Do(ctx); err != nil && ctx.Err() == nil {
		slog.DebugContext(ctx, "intercept: disable failed", "error", err)
	}
}
