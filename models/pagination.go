package models

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery is a parsed page/limit pair. Page is 1-based.
type PageQuery struct {
	Page  int64
	Limit int64
}

// NewPageQuery clamps raw query values into a usable page/limit pair.
// Non-positive pages become 1 and out-of-range limits fall back to the
// default.
func NewPageQuery(page, limit int64) PageQuery {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return PageQuery{Page: page, Limit: limit}
}

func (q PageQuery) Skip() int64 { return (q.Page - 1) * q.Limit }

// TotalPages is ceil(total / limit).
func (q PageQuery) TotalPages(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return (total + q.Limit - 1) / q.Limit
}

// PagedBooks is the envelope for paginated book listings.
type PagedBooks struct {
	Items      []Book `json:"items"`
	Page       int64  `json:"page"`
	TotalItems int64  `json:"totalItems"`
	TotalPages int64  `json:"totalPages"`
}

// NewPagedBooks assembles a listing envelope. A nil slice becomes empty so
// clients always see a JSON array, including for out-of-range pages.
func NewPagedBooks(items []Book, q PageQuery, total int64) PagedBooks {
	if items == nil {
		items = []Book{}
	}
	return PagedBooks{
		Items:      items,
		Page:       q.Page,
		TotalItems: total,
		TotalPages: q.TotalPages(total),
	}
}
