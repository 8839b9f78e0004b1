package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Tab is one browser tab. Its methods run against the tab's own context and
// are bounded by the session timeout.
//
// Per-call deadlines are enforced with a goroutine and a timer instead of a
// child context: cancelling a child of the chromedp tab context tears the
// target down.
type Tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu        sync.Mutex
	intercept *interception
}

// run executes actions on the tab, giving up after the tab timeout.
func (t *Tab) run(actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(t.ctx, actions...)
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
	case <-t.ctx.Done():
		return context.Cause(t.ctx)
	}
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(url string) error {
	if err := t.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// HTML returns the serialized document.
func (t *Tab) HTML() (string, error) {
	var html string
	if err := t.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return html, nil
}

// Exists reports whether selector matches an element right now.
func (t *Tab) Exists(selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector))
	if err := t.run(chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("querying %s: %w", selector, err)
	}
	return found, nil
}

// evaluate calls a JS function expression with the given arguments and
// awaits the returned promise, if any.
func (t *Tab) evaluate(fn string, res any, args ...any) error {
	encoded := make([]byte, 0, 64)
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encoding argument #%d: %w", i, err)
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, b...)
	}

	script := fmt.Sprintf("(%s)(%s)", fn, encoded)
	return t.run(chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

// Close closes the tab.
func (t *Tab) Close() {
	t.cancel()
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
