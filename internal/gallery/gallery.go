package gallery

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/stupside/quire/internal/app"
)

// ErrInvalidIdentifier is wrapped by every InvalidIdentifierError.
var ErrInvalidIdentifier = errors.New("invalid item identifier")

// InvalidIdentifierError reports a malformed item URL and its position in
// the input batch.
type InvalidIdentifierError struct {
	Input string
	Index int
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("input #%d %q: %s", e.Index+1, e.Input, ErrInvalidIdentifier)
}

func (e *InvalidIdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// Item is one gallery work addressed by its slug.
type Item struct {
	Slug string
	URL  string
}

// Site knows the URL layout of the gallery.
type Site struct {
	base       string
	collection string
	loginPath  string
	readerPath string
	listing    string
	slugRe     *regexp.Regexp
}

// NewSite builds a Site from its configuration.
func NewSite(cfg app.SiteConfig, listingPath string) (*Site, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL %q: invalid host", cfg.BaseURL)
	}

	collection := strings.Trim(cfg.Collection, "/")
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	pattern := `(?i)^(?:[a-z][a-z0-9+.-]*://)?(?:www\.)?` + regexp.QuoteMeta(host) +
		`/` + regexp.QuoteMeta(collection) + `/([^/?#]*)`

	return &Site{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		collection: collection,
		loginPath:  cfg.LoginPath,
		readerPath: cfg.ReaderPath,
		listing:    listingPath,
		slugRe:     regexp.MustCompile(pattern),
	}, nil
}

// Resolve extracts the item slug from a raw URL.
func (s *Site) Resolve(raw string) (Item, error) {
	m := s.slugRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil || m[1] == "" {
		return Item{}, &InvalidIdentifierError{Input: raw}
	}
	return Item{Slug: m[1], URL: s.ItemURL(m[1])}, nil
}

// ResolveAll resolves a batch, failing on the first malformed input.
func (s *Site) ResolveAll(raws []string) ([]Item, error) {
	items := make([]Item, 0, len(raws))
	for i, raw := range raws {
		item, err := s.Resolve(raw)
		if err != nil {
			return nil, &InvalidIdentifierError{Input: raw, Index: i}
		}
		items = append(items, item)
	}
	return items, nil
}

// BaseURL returns the site root without a trailing slash.
func (s *Site) BaseURL() string {
	return s.base
}

// ItemURL returns the canonical URL of an item.
func (s *Site) ItemURL(slug string) string {
	return s.base + "/" + s.collection + "/" + slug
}

// ReaderURL returns the URL that opens the page reader for an item.
func (s *Site) ReaderURL(slug string) string {
	return s.ItemURL(slug) + s.readerPath
}

// LoginURL returns the login page URL.
func (s *Site) LoginURL() string {
	return s.base + s.loginPath
}

// ListingURL returns the catalogue page with the given 1-based number.
func (s *Site) ListingURL(page int) string {
	return s.base + strings.ReplaceAll(s.listing, "{page}", strconv.Itoa(page))
}

// Absolute resolves href against the site root.
func (s *Site) Absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(s.base + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ReadList parses a newline-delimited URL list, ignoring blank lines.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
