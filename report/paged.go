// Package report computes the listings and summary statistics a report
// renderer consumes: per-package severity rollups, filtered CVE listings,
// reference-data views and whole-report summaries.
package report

// PageInfo selects one page of a listing. Entries 0 disables paging and
// returns the full result; Page is 1-based.
type PageInfo struct {
	Entries int
	Page    int
}

func (p PageInfo) Limited() bool {
	return p.Entries > 0 && p.Page > 0
}

func (p PageInfo) Offset() int {
	return p.Entries * (p.Page - 1)
}

// Paged carries one page of data along with the total row count of the
// unpaged result, so a caller can render pagination controls.
type Paged[T any] struct {
	PageInfo
	Total      int64
	TotalPages int64
	Data       []T
}

func NewPaged[T any](info PageInfo, total int64, data []T) Paged[T] {
	pages := int64(1)
	if info.Entries > 0 {
		pages = (total + int64(info.Entries) - 1) / int64(info.Entries)
	}
	return Paged[T]{
		PageInfo:   info,
		Total:      total,
		TotalPages: pages,
		Data:       data,
	}
}
