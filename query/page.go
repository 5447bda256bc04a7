package query

import "fmt"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// Page describes one page of a result set of Count rows.
type Page struct {
	Number     int   `json:"page"`
	Size       int   `json:"-"`
	Count      int64 `json:"count"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes the pagination of count rows. There is always at least one page, so an
// empty result is page 1 of 1. Numbers below 1 or past the last page are ErrInvalidPage.
func NewPage(number, size int, count int64) (Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := int((count + int64(size) - 1) / int64(size))
	if total < 1 {
		total = 1
	}
	if number < 1 || number > total {
		return Page{}, fmt.Errorf("%w: page %d of %d", ErrInvalidPage, number, total)
	}
	return Page{Number: number, Size: size, Count: count, TotalPages: total}, nil
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func (p Page) HasNext() bool { return p.Number < p.TotalPages }

func (p Page) HasPrevious() bool { return p.Number > 1 }
