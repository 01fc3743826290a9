package pagination

import (
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	// DefaultPerPage is the standard page size when perPage is not provided.
	DefaultPerPage = 20
	// MaxPerPage caps how many rows any list query can request.
	MaxPerPage = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Normalize enforces a 1-based page and the configured default and maximum page sizes.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().PerPage
}

// TotalPages returns how many pages total rows span at perPage rows each.
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// NewPage assembles the list envelope for the given rows.
func NewPage[T any](params Params, total int64, rows []T) types.Page[T] {
	n := params.Normalize()
	if rows == nil {
		rows = []T{}
	}
	return types.Page[T]{
		Page:       n.Page,
		PerPage:    n.PerPage,
		TotalPages: TotalPages(total, n.PerPage),
		Total:      total,
		Data:       rows,
	}
}
