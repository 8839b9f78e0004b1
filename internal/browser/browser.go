// Package browser drives the Chrome instance used to read galleries.
package browser

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/stupside/quire/internal/app"
)

// ErrTimeout is returned when a browser operation exceeds the configured
// timeout.
var ErrTimeout = errors.New("browser operation timed out")

// Session owns one Chrome process for the whole run. Tabs opened from it
// share cookies and the profile directory.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profile     *Profile
	timeout     time.Duration

	mu     sync.Mutex
	closed bool
}

// Launch starts Chrome with the given configuration. The fingerprint profile
// is derived from the user data directory so a persisted login keeps seeing
// the same browser identity across runs.
func Launch(ctx context.Context, cfg app.BrowserConfig) (*Session, error) {
	execPath, err := resolveExecPath(cfg.ChromePath)
	if err != nil {
		return nil, err
	}
	cfg.ChromePath = execPath

	userDataDir, err := filepath.Abs(cfg.UserDataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving user data dir %s: %w", cfg.UserDataDir, err)
	}
	cfg.UserDataDir = userDataDir

	profile := NewProfile(profileRand(userDataDir))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(cfg, profile)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser %s: %w", execPath, err)
	}

	slog.DebugContext(ctx, "browser started",
		"exec", execPath,
		"user_data_dir", userDataDir,
		"headless", cfg.Headless,
		"user_agent", profile.UserAgent(),
	)

	return &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		profile:     profile,
		timeout:     cfg.Timeout,
	}, nil
}

// resolveExecPath returns the configured Chrome binary, an installed one, or
// downloads a compatible Chromium into the rod cache.
func resolveExecPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}

	slog.Info("no local Chrome found, downloading Chromium")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}
	return path, nil
}

func profileRand(seed string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(seed))
	s := h.Sum64()
	return rand.New(rand.NewPCG(s, s>>1|1))
}

// NewTab opens a fresh tab with the stealth profile applied.
func (s *Session) NewTab() (*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("browser session is closed")
	}

	tabCtx, cancel := chromedp.NewContext(s.ctx)
	t := &Tab{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: s.timeout,
	}

	chromedp.ListenTarget(tabCtx, t.listen)

	if err := t.run(prepare(s.profile)...); err != nil {
		cancel()
		return nil, fmt.Errorf("preparing tab: %w", err)
	}

	return t, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.allocCancel()
}
