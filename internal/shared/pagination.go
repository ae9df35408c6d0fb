package shared

import "math"

const defaultPerPage = 20

// ListParams carries the raw paging inputs from a request.
type ListParams struct {
	Page    int
	PerPage int
}

// Normalize clamps paging inputs to sane values.
func (p ListParams) Normalize() ListParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	return p
}

// Limit returns the row limit for the normalized params.
func (p ListParams) Limit() int {
	return p.Normalize().PerPage
}

// Offset returns the row offset for the normalized params.
func (p ListParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(params ListParams, total int) Pagination {
	n := params.Normalize()
	totalPages := int(math.Ceil(float64(total) / float64(n.PerPage)))
	return Pagination{Page: n.Page, PerPage: n.PerPage, Total: total, TotalPages: totalPages}
}
