package pagination

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultSize = 10
	MaxSize     = 1000
)

var ErrInvalidPage = errors.New("invalid page")

// Page is an offset window: skip From rows, return at most Size.
type Page struct {
	From int
	Size int
}

// Default returns the first page of DefaultSize rows.
func Default() Page {
	return Page{From: 0, Size: DefaultSize}
}

// Limit returns Size, falling back to DefaultSize when unset.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return DefaultSize
	}
	return p.Size
}

// Offset returns From clamped to zero.
func (p Page) Offset() int {
	if p.From < 0 {
		return 0
	}
	return p.From
}

// Slice applies the page window to an in-memory slice.
func Slice[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// FromQuery reads the from/size query parameters.
func FromQuery(values url.Values) (Page, error) {
	page := Default()

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := strconv.Atoi(raw)
		if err != nil || from < 0 {
			return Page{}, ErrInvalidPage
		}
		page.From = from
	}
	if raw := strings.TrimSpace(values.Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 || size > MaxSize {
			return Page{}, ErrInvalidPage
		}
		page.Size = size
	}
	return page, nil
}
