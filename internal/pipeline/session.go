package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stupside/quire/internal/browser"
	"github.com/stupside/quire/internal/gallery"
)

// Bootstrap prepares an authenticated browser session.
type Bootstrap struct {
	Site          *gallery.Site
	LoginSelector string
	CookiesPath   string
	Gate          LoginGate

	// saved, when set, receives the outcome of the background cookie save.
	saved chan<- error
}

// Run restores stored cookies, opens the login page and, if the login form
// is shown, waits on the gate. Once the home page has loaded it saves the
// current cookies in the background; that save is never awaited.
func (b Bootstrap) Run(ctx context.Context, tab Tab) error {
	cookies, err := browser.LoadCookies(b.CookiesPath)
	if err != nil {
		return err
	}
	if len(cookies) > 0 {
		if err := tab.SetCookies(cookies); err != nil {
			return err
		}
		slog.DebugContext(ctx, "cookies restored", "count", len(cookies))
	}

	if err := tab.Navigate(b.Site.LoginURL()); err != nil {
		return err
	}

	loggedOut, err := tab.Exists(b.LoginSelector)
	if err != nil {
		return err
	}
	if loggedOut {
		slog.InfoContext(ctx, "login required")
		if err := b.Gate.Await(ctx, tab); err != nil {
			return fmt.Errorf("waiting for login: %w", err)
		}
	}

	if err := tab.Navigate(b.Site.BaseURL()); err != nil {
		return err
	}

	go b.saveCookies(ctx, tab)

	return nil
}

func (b Bootstrap) saveCookies(ctx context.Context, tab Tab) {
	err := func() error {
		cookies, err := tab.Cookies()
		if err != nil {
			return err
		}
		return browser.SaveCookies(b.CookiesPath, cookies)
	}()
	if err != nil {
		slog.WarnContext(ctx, "saving cookies failed", "error", err)
	} else {
		slog.DebugContext(ctx, "cookies saved", "path", b.CookiesPath)
	}

	if b.saved != nil {
		b.saved <- err
	}
}
