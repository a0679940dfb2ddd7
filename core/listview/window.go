package listview

// Ellipsis marks a gap in a page window.
const Ellipsis = -1

// PageWindow returns the zero-based page numbers to render for `page` out of `totalPages`:
// the first page, the last page and [page-1, page+1], with an Ellipsis wherever pages are skipped.
// eg. page 4 of 10: 0 … 3 4 5 … 9
func PageWindow(page, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}

	candidates := []int{0, page - 1, page, page + 1, totalPages - 1}
	window := make([]int, 0, len(candidates)+2)
	prev := -1
	for _, p := range candidates {
		if p < 0 || p >= totalPages || p <= prev {
			continue
		}
		if prev >= 0 && p-prev > 1 {
			window = append(window, Ellipsis)
		}
		window = append(window, p)
		prev = p
	}
	return window
}
