// Package paginate orders posts and builds index-page navigation.
package paginate

import (
	"slices"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/mirage/internal/content"
)

// PageSize is the number of posts per index page.
const PageSize = 10

// Page is one index page: a contiguous chunk of posts and its 1-based number.
type Page struct {
	Number int
	Items  []content.Item
}

// SortPosts sorts items by creation time, oldest first. Equal times keep
// their relative order.
func SortPosts(items []content.Item) {
	slices.SortStableFunc(items, func(a, b content.Item) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// Chunk splits items into order-preserving pages of at most size items.
func Chunk(items []content.Item, size int) []Page {
	if size <= 0 {
		size = PageSize
	}
	pages := make([]Page, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		pages = append(pages, Page{Number: len(pages) + 1, Items: items[i:end]})
	}
	return pages
}

// URL returns the public URL of index page n.
func URL(n int) string {
	if n == 1 {
		return "/"
	}
	return "/" + strconv.Itoa(n)
}

// OutputPath returns the index file path of page n relative to the output root.
func OutputPath(n int) string {
	if n == 1 {
		return "index.html"
	}
	return strconv.Itoa(n) + "/index.html"
}

// Nav renders the pagination markup for page current of total.
// A single page (or none) has no navigation.
func Nav(total, current int) string {
	if total <= 1 {
		return ""
	}
	var b strings.Builder
	if current > 1 {
		b.WriteString(`<a href="` + URL(current-1) + `">&lt; Newer</a> &bull; `)
	}
	for i := 1; i <= total; i++ {
		n := strconv.Itoa(i)
		if i == current {
			b.WriteString(n + " ")
		} else {
			b.WriteString(`<a href="` + URL(i) + `">` + n + `</a> `)
		}
	}
	if current < total {
		b.WriteString(` &bull; <a href="` + URL(current+1) + `">Older &gt;</a>`)
	}
	return b.String()
}
