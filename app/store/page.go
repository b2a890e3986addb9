package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MusClub-NSU/MusClub-manager/app/enums"
)

// page size limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPageNumber   = 1_000_000 // keeps Number*Size far from int overflow
)

// nullableSortColumns are sorted with NULLs last, sqlite and postgres disagree on the default
var nullableSortColumns = map[string]bool{"end_time": true}

// ErrInvalidSort is returned when a page asks to sort by an unknown field
var ErrInvalidSort = errors.New("invalid sort")

// Page describes a zero-based page request with optional ordering
type Page struct {
	Number    int
	Size      int
	SortField string // api field name, e.g. "startTime"
	Direction enums.SortDirection
}

// ParseSort parses "field" or "field,asc|desc" into the page ordering
func (p *Page) ParseSort(sort string) error {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return nil
	}
	field, dir, hasDir := strings.Cut(sort, ",")
	p.SortField = strings.TrimSpace(field)
	p.Direction = enums.SortDirectionAsc
	if hasDir && strings.TrimSpace(dir) != "" {
		d, err := enums.ParseSortDirection(dir)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSort, err)
		}
		p.Direction = d
	}
	return nil
}

// Normalized returns a copy with number and size clamped to valid values
func (p Page) Normalized() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Direction == (enums.SortDirection{}) {
		p.Direction = enums.SortDirectionAsc
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	n := p.Normalized()
	return n.Number * n.Size
}

// orderBy builds ORDER BY clause from whitelisted columns, id is used as a tie breaker
func (p Page) orderBy(columns map[string]string) (string, error) {
	n := p.Normalized()
	if n.SortField == "" {
		return "ORDER BY id ASC", nil
	}
	col, ok := columns[n.SortField]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidSort, n.SortField)
	}
	if col == "id" {
		return "ORDER BY id " + n.Direction.SQL(), nil
	}
	if nullableSortColumns[col] {
		return fmt.Sprintf("ORDER BY CASE WHEN %s IS NULL THEN 1 ELSE 0 END, %s %s, id ASC", col, col, n.Direction.SQL()), nil
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", col, n.Direction.SQL()), nil
}

// PageResult holds one page of items with the total count across all pages
type PageResult[T any] struct {
	Items  []T
	Total  int
	Number int
	Size   int
}

// TotalPages returns number of pages for the total count
func (r PageResult[T]) TotalPages() int {
	if r.Size <= 0 {
		return 0
	}
	return (r.Total + r.Size - 1) / r.Size
}

// First is true for the first page
func (r PageResult[T]) First() bool { return r.Number == 0 }

// Last is true when there is no page after this one
func (r PageResult[T]) Last() bool { return r.Number >= r.TotalPages()-1 }
