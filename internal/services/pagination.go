package services

import "gorm.io/gorm"

// PageSize is the number of rows per list page.
const PageSize = 15

// Page is one page of a list query.
type Page[T any] struct {
	Items    []T
	Total    int64
	Number   int
	PageSize int
}

// Pages returns the number of pages, at least one.
func (p Page[T]) Pages() int {
	if p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.Pages() }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

func normalizePage(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func paginate(n int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((normalizePage(n) - 1) * PageSize).Limit(PageSize)
	}
}
