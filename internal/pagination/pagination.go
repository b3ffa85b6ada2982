// Package pagination slices ordered sequences into fixed-size, 1-based pages.
package pagination

// DefaultPageSize matches the map view's list panel.
const DefaultPageSize = 4

// TotalPages returns ceil(count/pageSize), never less than 1 so that an empty
// result still renders as "page 1 of 1".
func TotalPages(pageSize, count int) int {
	if pageSize < 1 || count <= 0 {
		return 1
	}
	total := count / pageSize
	if count%pageSize != 0 {
		total++
	}
	return total
}

// Page returns the n-th page of source. Out of range pages are empty, never an error.
// The returned slice shares its backing array with source.
func Page[T any](n, pageSize int, source []T) []T {
	if n < 1 || pageSize < 1 {
		return []T{}
	}
	// Compare in page units first so (n-1)*pageSize cannot overflow
	if n-1 >= TotalPages(pageSize, len(source)) || len(source) == 0 {
		return []T{}
	}
	start := (n - 1) * pageSize
	end := start + min(pageSize, len(source)-start)
	return source[start:end:end]
}

// Clamp bounds n to [1, TotalPages(pageSize, count)]
func Clamp(n, pageSize, count int) int {
	if n < 1 {
		return 1
	}
	if total := TotalPages(pageSize, count); n > total {
		return total
	}
	return n
}

// Result is a rendered page plus the derived pagination values
type Result[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// Paginate computes the page and its metadata in one step
func Paginate[T any](n, pageSize int, source []T) Result[T] {
	return Result[T]{
		Items:      Page(n, pageSize, source),
		Page:       n,
		PageSize:   pageSize,
		TotalPages: TotalPages(pageSize, len(source)),
		TotalItems: len(source),
	}
}
