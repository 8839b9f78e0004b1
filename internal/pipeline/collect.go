package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/gallery"
	"github.com/stupside/quire/internal/ledger"
)

// Collect walks the catalogue listing from its first page and records every
// item URL it finds in out, which is flushed after each listing page. It
// follows the next-page link until there is none, it points back to a page
// already seen, or cfg.MaxPages pages were read. It returns the number of
// new URLs.
func Collect(ctx context.Context, tab Tab, site *gallery.Site, cfg app.CollectConfig, out *ledger.Ledger) (int, error) {
	seen := make(map[string]struct{})
	next := site.ListingURL(1)
	total := 0

	for pages := 0; cfg.MaxPages == 0 || pages < cfg.MaxPages; pages++ {
		if err := ctx.Err(); err != nil {
			return total, context.Cause(ctx)
		}
		seen[next] = struct{}{}

		if err := tab.Navigate(next); err != nil {
			return total, err
		}
		html, err := tab.HTML()
		if err != nil {
			return total, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return total, fmt.Errorf("parsing listing %s: %w", next, err)
		}

		var urls []string
		doc.Find(cfg.ItemSelector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			item, err := site.Resolve(site.Absolute(href))
			if err != nil {
				slog.DebugContext(ctx, "ignoring listing link", "href", href)
				return
			}
			urls = append(urls, item.URL)
		})

		added, err := out.Merge(urls)
		if err != nil {
			return total, err
		}
		total += added
		slog.InfoContext(ctx, "listing page", "url", next, "items", len(urls), "new", added)

		href, ok := doc.Find(cfg.NextSelector).First().Attr("href")
		if !ok || href == "" {
			break
		}
		next = site.Absolute(href)
		if _, dup := seen[next]; dup {
			break
		}
	}

	return total, nil
}
