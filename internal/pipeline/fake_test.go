package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stupside/quire/internal/browser"
	"github.com/stupside/quire/internal/gesture"
)

// fakeBrowser is an in-memory site shared by every fakeTab it opens.
type fakeBrowser struct {
	t *testing.T

	mu sync.Mutex

	// html served per URL
	pages map[string]string
	// manifest body per slug, delivered when the reader loads
	manifests map[string]string
	// pages whose canvas yields no image, per slug
	blank map[string]map[int]bool
	// when set, no canvas ever appears
	noCanvas bool
	// login form shown until the count of Exists calls reaches loginUntil
	loginUntil int
	// reader loads take this long and then fail with readerErr
	readerDelay time.Duration
	readerErr   error

	opened      int
	navigations []string
	marked      []int
	extracted   []int
	dispatched  []gesture.Event
	cookies     []browser.Cookie
	existsCalls int
	snapshots   []string
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	return &fakeBrowser{
		t:         t,
		pages:     make(map[string]string),
		manifests: make(map[string]string),
		blank:     make(map[string]map[int]bool),
	}
}

func (b *fakeBrowser) open() (Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return &fakeTab{b: b}, nil
}

type fakeTab struct {
	b         *fakeBrowser
	url       string
	intercept func([]byte)
	closed    bool
}

func slugOf(url string) string {
	_, rest, ok := strings.Cut(url, "/hentai/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, "/")
	return slug
}

func (t *fakeTab) Navigate(url string) error {
	t.b.mu.Lock()
	t.b.navigations = append(t.b.navigations, url)
	body, ok := t.b.manifests[slugOf(url)]
	delay, readerErr := t.b.readerDelay, t.b.readerErr
	t.b.mu.Unlock()

	reader := strings.Contains(url, "/read/")
	if !reader {
		t.url = url
		return nil
	}

	time.Sleep(delay)
	t.url = url
	if ok && t.intercept != nil {
		fn := t.intercept
		t.intercept = nil
		fn([]byte(body))
	}
	return readerErr
}

func (t *fakeTab) HTML() (string, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	html, ok := t.b.pages[t.url]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return html, nil
}

func (t *fakeTab) Exists(string) (bool, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.existsCalls++
	return t.b.existsCalls <= t.b.loginUntil, nil
}

func (t *fakeTab) InterceptResponse(_ browser.Match, fn func([]byte)) error {
	t.intercept = fn
	return nil
}

func (t *fakeTab) MarkCanvas(_ string, page int) (bool, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.marked = append(t.b.marked, page)
	return !t.b.noCanvas, nil
}

func (t *fakeTab) ExtractCanvas(_ string, page int) (string, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.extracted = append(t.b.extracted, page)
	if t.b.blank[slugOf(t.url)][page] {
		return "", nil
	}
	return pageDataURL(t.b.t, page), nil
}

func (t *fakeTab) Dispatch(ev gesture.Event) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.dispatched = append(t.b.dispatched, ev)
	return nil
}

func (t *fakeTab) Cookies() ([]browser.Cookie, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.closed {
		return nil, errors.New("tab closed")
	}
	return append([]browser.Cookie(nil), t.b.cookies...), nil
}

func (t *fakeTab) SetCookies(c []browser.Cookie) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.cookies = append(t.b.cookies, c...)
	return nil
}

func (t *fakeTab) Snapshot(_, label string) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.snapshots = append(t.b.snapshots, label)
}

func (t *fakeTab) Close() {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.closed = true
}

// pageImage is a noisy, partly transparent bitmap unique to a page so that
// PNG compression cannot collapse it.
func pageImage(page int) *image.NRGBA {
	r := rand.New(rand.NewPCG(uint64(page), 99))
	img := image.NewNRGBA(image.Rect(0, 0, 24, 16+page))
	for y := range img.Bounds().Dy() {
		for x := range img.Bounds().Dx() {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(r.IntN(256)),
				G: uint8(r.IntN(256)),
				B: uint8(r.IntN(256)),
				A: uint8(64 + r.IntN(192)),
			})
		}
	}
	return img
}

func pageDataURL(t *testing.T, page int) string {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, pageImage(page)))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

const itemHTML = `<html><body>
<h1>Test Gallery</h1>
<img src="https://t.site/images/thumbs/001.thumb.jpg">
<div class="table text-sm w-full">
	<div>Artist</div>
	<div><a href="/artists/someone">Someone</a></div>
</div>
<div class="table text-sm w-full">
	<div>Pages</div>
	<div>2 pages</div>
</div>
<div class="table text-sm w-full">
	<a href="/tags/tag">Tag</a>
</div>
</body></html>`
