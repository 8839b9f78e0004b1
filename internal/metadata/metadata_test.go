package metadata

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const itemURL = "https://www.fakku.net/hentai/abc123"

func block(label, value string) string {
	return `<div class="table text-sm w-full">
		<div class="table-cell w-24">` + label + `</div>
		<div class="table-cell">` + value + `</div>
	</div>`
}

func page(blocks ...string) string {
	return `<html><body>
		<h1 class="title"> Some Title </h1>
		<img src="https://t.fakku.net/images/manga/a/abc123/thumbs/003.thumb.jpg?v=2">
		` + strings.Join(blocks, "\n") + `
	</body></html>`
}

func intPtr(n int) *int { return &n }

func TestExtractFullPage(t *testing.T) {
	html := page(
		block("Artist", `<a href="/artists/a">Artist A</a>, <a href="/artists/b"> Artist B </a>`),
		block("Circle", `<a href="/circles/c">Circle C</a>`),
		block("Parody", `<a href="/series/original">Original Work</a>`),
		block("Magazine", `<a href="/magazines/m">Comic M 2024-01</a>`),
		block("Publisher", `<a href="/publishers/p">Pub</a>`),
		block("Event", `<a href="/events/e">Event E</a>`),
		block("Pages", `24 pages`),
		`<div class="table text-sm w-full">A short description.</div>`,
		`<div class="table text-sm w-full">
			<a href="/tags/one">One</a>
			<a href="/tags/two">Two</a>
			<a href="/unlimited">Unlimited</a>
		</div>`,
	)

	got, err := Extract(strings.NewReader(html), itemURL)
	require.NoError(t, err)

	want := &Metadata{
		Title:          "Some Title",
		Artist:         []string{"Artist A", "Artist B"},
		Circle:         []string{"Circle C"},
		Description:    "A short description.",
		Parody:         []string{"Original Work"},
		URL:            itemURL,
		Tags:           []string{"One", "Two"},
		Publisher:      []string{"Pub"},
		Magazine:       []string{"Comic M 2024-01"},
		Event:          []string{"Event E"},
		Pages:          intPtr(24),
		ThumbnailIndex: intPtr(2),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractMissingOptionalBlocks(t *testing.T) {
	html := page(
		block("Artist", `<a href="/artists/a">Artist A</a>`),
		block("Pages", `12 pages`),
		block("Tags", `<a href="/tags/one">One</a>`),
	)

	got, err := Extract(strings.NewReader(html), itemURL)
	require.NoError(t, err)

	require.Equal(t, []string{"Artist A"}, got.Artist)
	require.Nil(t, got.Magazine)
	require.Nil(t, got.Circle)
	require.Nil(t, got.Event)
	require.Empty(t, got.Description)
	require.Equal(t, []string{"One"}, got.Tags)
	require.Equal(t, 12, *got.Pages)

	out, err := Encode(got)
	require.NoError(t, err)
	require.NotContains(t, string(out), "Magazine")
	require.NotContains(t, string(out), "Description")
}

func TestExtractLabelIsCaseSensitive(t *testing.T) {
	html := page(
		block("artist", `<a href="/artists/a">Artist A</a>`),
		block("Tags", ``),
	)

	got, err := Extract(strings.NewReader(html), itemURL)
	require.NoError(t, err)
	require.Nil(t, got.Artist)
	require.Nil(t, got.Tags)
}

func TestExtractRequiredElements(t *testing.T) {
	noTitle := `<html><body><img src="/thumbs/1.jpg"></body></html>`
	_, err := Extract(strings.NewReader(noTitle), itemURL)
	require.ErrorIs(t, err, ErrExtraction)
	require.ErrorContains(t, err, "title")

	noThumb := `<html><body><h1>T</h1></body></html>`
	_, err = Extract(strings.NewReader(noThumb), itemURL)
	require.ErrorIs(t, err, ErrExtraction)
	require.ErrorContains(t, err, "thumbnail")

	badThumb := `<html><body><h1>T</h1><img src="/thumbs/cover.jpg"></body></html>`
	_, err = Extract(strings.NewReader(badThumb), itemURL)
	require.ErrorIs(t, err, ErrExtraction)
}

func TestExtractWithoutFieldBlocks(t *testing.T) {
	html := `<html><body><h1>Bare</h1><img src="/images/thumbs/1.jpg"></body></html>`

	got, err := Extract(strings.NewReader(html), itemURL)
	require.NoError(t, err)
	require.Equal(t, "Bare", got.Title)
	require.Nil(t, got.Tags)
	require.Nil(t, got.Pages)
	require.Equal(t, 0, *got.ThumbnailIndex)
}

func TestEncodeFieldOrder(t *testing.T) {
	m := &Metadata{
		Title:          "T",
		Artist:         []string{"A"},
		URL:            itemURL,
		Tags:           []string{"x"},
		Pages:          intPtr(3),
		ThumbnailIndex: intPtr(0),
	}

	out, err := Encode(m)
	require.NoError(t, err)
	require.Equal(t, `Title: T
Artist:
    - A
URL: https://www.fakku.net/hentai/abc123
Tags:
    - x
Pages: 3
ThumbnailIndex: 0
`, string(out))
}
