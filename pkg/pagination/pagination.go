// Package pagination slices fully fetched, ordered result sets into pages.
package pagination

// DefaultPageSize applies when the caller passes a non-positive page size.
const DefaultPageSize = 10

// Params selects a page or, when Limit is positive, a truncated prefix.
type Params struct {
	Page     int
	PageSize int
	Limit    int
}

// Result is a single page of items plus the counts a client needs to render
// page controls.
type Result[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	Limit      int
	// ViewAll is set when Limit hid records the caller can still fetch.
	ViewAll bool
}

// Normalize clamps page to >= 1 and replaces a non-positive page size with
// defaultSize (or DefaultPageSize). maxSize > 0 caps the page size.
func (p Params) Normalize(defaultSize, maxSize int) Params {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	return p
}

// Paginate returns items[(page-1)*size : page*size]. A page past the end is
// empty, never an error. A positive Limit takes precedence over paging.
func Paginate[T any](items []T, params Params) Result[T] {
	params = params.Normalize(0, 0)
	total := len(items)

	if params.Limit > 0 {
		n := params.Limit
		if n > total {
			n = total
		}
		return Result[T]{
			Items:      items[:n:n],
			Page:       1,
			PageSize:   n,
			TotalCount: total,
			TotalPages: 1,
			Limit:      params.Limit,
			ViewAll:    total > params.Limit,
		}
	}

	result := Result[T]{
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: total,
		TotalPages: TotalPages(total, params.PageSize),
	}
	// Compare page counts before multiplying so a huge page cannot overflow.
	if params.Page-1 >= pagesSpanned(total, params.PageSize) {
		result.Items = []T{}
		return result
	}
	start := (params.Page - 1) * params.PageSize
	end := start + params.PageSize
	if end > total {
		end = total
	}
	result.Items = items[start:end:end]
	return result
}

// pagesSpanned is the number of pages holding at least one item.
func pagesSpanned(total, size int) int {
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}

// TotalPages is ceil(total/size); zero items still render one page.
func TotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	if total == 0 {
		return 1
	}
	return pagesSpanned(total, size)
}
