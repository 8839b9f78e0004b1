package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/browser"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/pipeline"
)

// session is a launched browser with a logged-in main tab.
type session struct {
	browser *browser.Session
	main    *browser.Tab
}

// startSession launches the browser and runs the login bootstrap on a main
// tab that stays open for the whole command.
func startSession(ctx context.Context, cfg *app.Config, site *gallery.Site) (*session, error) {
	gate, err := pipeline.NewGate(cfg.Session, os.Stdin, os.Stdout)
	if err != nil {
		return nil, err
	}
	if cfg.Browser.Headless && cfg.Session.LoginGate != "fail" {
		slog.WarnContext(ctx, "browser is headless, a required login cannot be completed by hand",
			"login_gate", cfg.Session.LoginGate)
	}

	b, err := browser.Launch(ctx, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	main, err := b.NewTab()
	if err != nil {
		b.Close()
		return nil, err
	}

	boot := pipeline.Bootstrap{
		Site:          site,
		LoginSelector: cfg.Session.LoginSelector,
		CookiesPath:   cfg.Session.CookiesPath,
		Gate:          gate,
	}
	if err := boot.Run(ctx, main); err != nil {
		main.Snapshot(".debug", "login")
		main.Close()
		b.Close()
		return nil, err
	}

	return &session{browser: b, main: main}, nil
}

// open hands out a fresh tab per item.
func (s *session) open() (pipeline.Tab, error) {
	tab, err := s.browser.NewTab()
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (s *session) Close() {
	s.main.Close()
	s.browser.Close()
}
