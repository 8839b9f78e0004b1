package browser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Snapshot writes a screenshot and the page HTML to dir for post-mortem
// inspection. It does nothing unless debug logging is on, and it only logs
// its own failures.
func (t *Tab) Snapshot(dir, label string) {
	if !slog.Default().Enabled(t.ctx, slog.LevelDebug) {
		return
	}
	log := slog.With("label", label, "dir", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Debug("snapshot skipped", "error", err)
		return
	}
	base := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), sanitize(label)))

	var (
		shot []byte
		html string
	)
	parts := []struct {
		ext     string
		capture chromedp.Action
		data    func() []byte
	}{
		{".png", chromedp.FullScreenshot(&shot, 90), func() []byte { return shot }},
		{".html", chromedp.OuterHTML("html", &html, chromedp.ByQuery), func() []byte { return []byte(html) }},
	}

	for _, part := range parts {
		if err := t.run(part.capture); err != nil {
			log.Debug("snapshot capture failed", "part", part.ext, "error", err)
			continue
		}
		if err := os.WriteFile(base+part.ext, part.data(), 0o644); err != nil {
			log.Debug("snapshot write failed", "part", part.ext, "error", err)
		}
	}

	log.Debug("snapshot saved", "path", base)
}

// sanitize makes label usable inside a file name.
func sanitize(label string) string {
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:?*"<>| `, r) {
			return '_'
		}
		return r
	}, label)
	return s[:min(len(s), 80)]
}
