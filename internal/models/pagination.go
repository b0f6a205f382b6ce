package models

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is the limit/page pair every list endpoint accepts.
type Page struct {
	Limit int `form:"limit"`
	Page  int `form:"page"`
}

// Normalize applies the defaults used when a query omits or garbles paging.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the metadata block attached to list responses.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int   `json:"totalPages"`
}

func NewPagination(page Page, total int64) Pagination {
	pages := 0
	if page.Limit > 0 {
		pages = int((total + int64(page.Limit) - 1) / int64(page.Limit))
	}
	return Pagination{CurrentPage: page.Page, TotalRecords: total, TotalPages: pages}
}
