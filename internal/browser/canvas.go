package browser

import (
	_ "embed"
	"fmt"
)

//go:embed js/mark_canvas.js
var markCanvasJS string

//go:embed js/extract_canvas.js
var extractCanvasJS string

// MarkCanvas looks for a canvas matching selector that is not yet tagged
// with another page number and tags it with page. It reports whether such a
// canvas was found.
func (t *Tab) MarkCanvas(selector string, page int) (bool, error) {
	var marked bool
	if err := t.evaluate(markCanvasJS, &marked, selector, page); err != nil {
		return false, fmt.Errorf("marking canvas for page %d: %w", page, err)
	}
	return marked, nil
}

// ExtractCanvas encodes the canvas tagged with page as PNG and returns it as
// a data URL. An empty string means the canvas produced no image data.
func (t *Tab) ExtractCanvas(selector string, page int) (string, error) {
	var dataURL string
	if err := t.evaluate(extractCanvasJS, &dataURL, selector, page); err != nil {
		return "", fmt.Errorf("extracting canvas for page %d: %w", page, err)
	}
	return dataURL, nil
}
