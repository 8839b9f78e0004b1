// Package manifest decodes the page manifest served to the gallery reader.
package manifest

import (
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrMalformed is returned when the manifest body cannot be decoded.
var ErrMalformed = errors.New("malformed manifest")

// Page is one entry of the manifest's page mapping.
type Page struct {
	Key    string
	Number int
}

// Spread pairs two pages meant to be displayed side by side.
type Spread struct {
	A int
	B int
}

// Valid reports whether the pair is in ascending order. Only valid spreads
// are ever composed.
func (s Spread) Valid() bool {
	return s.B > s.A
}

func (s Spread) String() string {
	return fmt.Sprintf("%d_%d", s.A, s.B)
}

// Manifest lists an item's pages in the order the server sent them.
type Manifest struct {
	Pages   []Page
	Spreads []Spread
}

// Parse decodes a manifest body of the form
//
//	{"pages": {"<key>": {"page": 1}, ...}, "spreads": [[1, 2], ...]}
//
// Pages keep the key order of the JSON document. Extra fields are ignored.
func Parse(body []byte) (Manifest, error) {
	var m Manifest

	pages, dt, _, err := jsonparser.Get(body, "pages")
	if err != nil {
		return m, fmt.Errorf("%w: reading pages: %w", ErrMalformed, err)
	}
	if dt != jsonparser.Object {
		return m, fmt.Errorf("%w: pages is %s, want object", ErrMalformed, dt)
	}

	err = jsonparser.ObjectEach(pages, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		n, err := jsonparser.GetInt(value, "page")
		if err != nil {
			return fmt.Errorf("page %q: %w", key, err)
		}
		m.Pages = append(m.Pages, Page{Key: string(key), Number: int(n)})
		return nil
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	spreads, dt, _, err := jsonparser.Get(body, "spreads")
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError), err == nil && dt == jsonparser.Null:
		return m, nil
	case err != nil:
		return Manifest{}, fmt.Errorf("%w: reading spreads: %w", ErrMalformed, err)
	case dt != jsonparser.Array:
		return Manifest{}, fmt.Errorf("%w: spreads is %s, want array", ErrMalformed, dt)
	}

	var perr error
	_, err = jsonparser.ArrayEach(spreads, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if perr != nil {
			return
		}
		s, err := parseSpread(value, dt)
		if err != nil {
			perr = err
			return
		}
		m.Spreads = append(m.Spreads, s)
	})
	if err == nil {
		err = perr
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return m, nil
}

func parseSpread(value []byte, dt jsonparser.ValueType) (Spread, error) {
	if dt != jsonparser.Array {
		return Spread{}, fmt.Errorf("spread %s is %s, want array", value, dt)
	}

	var nums []int
	var nerr error
	_, err := jsonparser.ArrayEach(value, func(v []byte, _ jsonparser.ValueType, _ int, _ error) {
		n, err := jsonparser.ParseInt(v)
		if err != nil && nerr == nil {
			nerr = err
		}
		nums = append(nums, int(n))
	})
	if err == nil {
		err = nerr
	}
	if err != nil {
		return Spread{}, fmt.Errorf("spread %s: %w", value, err)
	}
	if len(nums) != 2 {
		return Spread{}, fmt.Errorf("spread %s has %d elements, want 2", value, len(nums))
	}

	return Spread{A: nums[0], B: nums[1]}, nil
}
