// Package content discovers Markdown posts and pages and turns them into
// renderable items.
package content

import (
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes posts (listed on the index) from standalone pages.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// Item is one compiled Markdown document. Items are created once per compile
// and never mutated afterwards.
type Item struct {
	Slug       string
	Title      string
	URLPath    string
	BodyHTML   string
	CreatedAt  time.Time
	Kind       Kind
	SourcePath string
}

// OutputPath is the item's path relative to its kind's output directory.
func (i Item) OutputPath() string {
	return path.Join(i.Slug, "index.html")
}

var lower = cases.Lower(language.Und)

// Slug lower-cases stem and replaces spaces with hyphens. The result is NFC
// normalised so that composed and decomposed file names map to one URL.
func Slug(stem string) string {
	return strings.ReplaceAll(norm.NFC.String(lower.String(stem)), " ", "-")
}

// ValidSlug reports whether slug names a single path segment below the
// output root.
func ValidSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && !strings.ContainsAny(slug, `/\`)
}

// URLPath returns the public URL of slug for kind.
func URLPath(kind Kind, slug string) string {
	if kind == KindPost {
		return "/posts/" + slug
	}
	return "/" + slug
}
