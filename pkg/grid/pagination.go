package grid

import "fmt"

// PageSizes are the page-size choices offered to users.
var PageSizes = []int{20, 50, 100, 200, 500}

// DefaultPageSize applies when no size is configured.
const DefaultPageSize = 15

// Summary describes the pagination bar for a page.
type Summary struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	From       int    `json:"from"`
	To         int    `json:"to"`
	Pages      []int  `json:"pages"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
	Text       string `json:"text"`
}

// Pagination computes the page links and the "Showing a to b of n results"
// caption. Links cover up to two pages before and after page.
func Pagination(page, size, total int) Summary {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + size - 1) / size
	start := page - 2
	if start < 0 {
		start = 0
	}
	end := page + 3
	if end > totalPages {
		end = totalPages
	}

	pages := make([]int, 0, 5)
	for n := start + 1; n <= end; n++ {
		pages = append(pages, n)
	}

	from := 0
	if total > 0 {
		from = (page-1)*size + 1
	}
	to := page * size
	if to > total {
		to = total
	}

	return Summary{
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
		From:       from,
		To:         to,
		Pages:      pages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		Text:       fmt.Sprintf("Showing %d to %d of %d results", from, to, total),
	}
}
