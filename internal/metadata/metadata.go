// Package metadata extracts gallery item details from the item page.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// ErrExtraction is returned when a required element is missing from the page.
var ErrExtraction = errors.New("metadata extraction failed")

const (
	fieldBlockSelector = ".table.text-sm.w-full"
	tagSelector        = `a[href^="/tags/"]`
	thumbnailSelector  = `img[src*="/thumbs/"]`
)

var digits = regexp.MustCompile(`\d+`)

// Metadata describes one gallery item. Fields absent from the page are left
// empty and omitted from the sidecar.
type Metadata struct {
	Title          string   `yaml:"Title,omitempty"`
	Artist         []string `yaml:"Artist,omitempty"`
	Circle         []string `yaml:"Circle,omitempty"`
	Description    string   `yaml:"Description,omitempty"`
	Parody         []string `yaml:"Parody,omitempty"`
	URL            string   `yaml:"URL,omitempty"`
	Tags           []string `yaml:"Tags,omitempty"`
	Publisher      []string `yaml:"Publisher,omitempty"`
	Magazine       []string `yaml:"Magazine,omitempty"`
	Event          []string `yaml:"Event,omitempty"`
	Pages          *int     `yaml:"Pages,omitempty"`
	ThumbnailIndex *int     `yaml:"ThumbnailIndex,omitempty"`
}

// Extract parses an item page. canonicalURL is recorded as the item URL.
func Extract(r io.Reader, canonicalURL string) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing item page: %w", err)
	}

	title := doc.Find("h1").First()
	if title.Length() == 0 {
		return nil, fmt.Errorf("%w: title element not found", ErrExtraction)
	}

	m := &Metadata{
		Title: strings.TrimSpace(title.Text()),
		URL:   canonicalURL,
	}

	blocks := doc.Find(fieldBlockSelector)

	m.Artist = linkTexts(labelled(blocks, "Artist"))
	m.Circle = linkTexts(labelled(blocks, "Circle"))
	m.Parody = linkTexts(labelled(blocks, "Parody"))
	m.Publisher = linkTexts(labelled(blocks, "Publisher"))
	m.Magazine = linkTexts(labelled(blocks, "Magazine"))
	m.Event = linkTexts(labelled(blocks, "Event"))

	if n := blocks.Length(); n >= 2 {
		if desc := blocks.Eq(n - 2); desc.Contents().Length() == 1 {
			m.Description = strings.TrimSpace(desc.Text())
		}
	}

	if n := blocks.Length(); n >= 1 {
		m.Tags = texts(blocks.Eq(n - 1).Find(tagSelector))
	}

	if pages := labelled(blocks, "Pages"); pages != nil {
		if s := digits.FindString(pages.Children().Eq(1).Text()); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				m.Pages = &n
			}
		}
	}

	idx, err := thumbnailIndex(doc)
	if err != nil {
		return nil, err
	}
	m.ThumbnailIndex = &idx

	return m, nil
}

// labelled returns the first field block whose label matches exactly, or nil.
func labelled(blocks *goquery.Selection, label string) *goquery.Selection {
	match := blocks.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Children().First().Text()) == label
	}).First()
	if match.Length() == 0 {
		return nil
	}
	return match
}

func linkTexts(block *goquery.Selection) []string {
	if block == nil {
		return nil
	}
	return texts(block.Find("a"))
}

func texts(s *goquery.Selection) []string {
	if s.Length() == 0 {
		return nil
	}
	return s.Map(func(_ int, a *goquery.Selection) string {
		return strings.TrimSpace(a.Text())
	})
}

// thumbnailIndex derives the zero-based page index of the cover thumbnail
// from a src such as "/images/thumbs/12.thumb.jpg".
func thumbnailIndex(doc *goquery.Document) (int, error) {
	src, ok := doc.Find(thumbnailSelector).First().Attr("src")
	if !ok {
		return 0, fmt.Errorf("%w: thumbnail image not found", ErrExtraction)
	}

	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}

	s := digits.FindString(path.Base(p))
	if s == "" {
		return 0, fmt.Errorf("%w: thumbnail %q has no page number", ErrExtraction, src)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: thumbnail %q: %w", ErrExtraction, src, err)
	}
	return n - 1, nil
}

// Encode serializes m as the YAML sidecar.
func Encode(m *Metadata) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return out, nil
}
