package domain

import (
	"math"

	"campus-market/internal/errors"
)

// Page selects a 1-indexed window of a result set.
type Page struct {
	Number int
	Size   int
}

func (p Page) Validate(maxSize int) error {
	if p.Number < 1 {
		return errors.ErrInvalidPagination.WithDetails("page must be at least 1")
	}
	if p.Size < 1 || p.Size > maxSize {
		return errors.NewAppErrorf(errors.InvalidPagination, "page_size must be between 1 and %d", maxSize)
	}
	// Offset must fit in an int.
	if p.Number-1 > math.MaxInt/p.Size {
		return errors.ErrInvalidPagination.WithDetails("page is too large")
	}
	return nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

// PageResult is one page of items plus the size of the whole result set.
type PageResult[T any] struct {
	Items []T
	Total int64
	Page  Page
}

func (r PageResult[T]) TotalPages() int {
	if r.Total == 0 || r.Page.Size == 0 {
		return 0
	}
	return int((r.Total + int64(r.Page.Size) - 1) / int64(r.Page.Size))
}
