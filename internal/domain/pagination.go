package domain

const (
	DefaultPage  = 1
	MaxPageLimit = 100
)

// PageRequest is a normalized 1-based page number and page size.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page and limit into valid ranges, using def when limit is unset.
func NewPageRequest(page, limit, def int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = def
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageInfo describes where a result page sits in the full result set.
type PageInfo struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"hasNextPage"`
	HasPrevious bool `json:"hasPreviousPage"`
}

func NewPageInfo(req PageRequest, returned, total int) PageInfo {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return PageInfo{
		CurrentPage: req.Page,
		TotalPages:  pages,
		Total:       total,
		HasNext:     req.Offset()+returned < total,
		HasPrevious: req.Page > 1,
	}
}
