// Package render substitutes {{token}} placeholders in raw templates.
//
// Substitution is literal and ordered: each pair is applied with
// strings.ReplaceAll in turn, values are never escaped, and tokens without a
// value are left in the output verbatim.
package render

import (
	"strings"

	"git.home.luguber.info/inful/mirage/internal/content"
)

// Base template tokens.
const (
	TokenPosts      = "{{posts}}"
	TokenPagination = "{{pagination}}"
	TokenStyles     = "{{styles}}"
	TokenScripts    = "{{scripts}}"
	TokenTitle      = "{{title}}"
	TokenSubtitle   = "{{subtitle}}"
	TokenPages      = "{{pages}}"
)

// Post template tokens.
const (
	TokenContent   = "{{content}}"
	TokenPermalink = "{{permalink}}"
	TokenPostTitle = "{{post-title}}"
	TokenPostDate  = "{{post-date}}"
)

// DateLayout formats {{post-date}} in ctime style.
const DateLayout = "Mon Jan _2 15:04:05 2006"

// Sub is one token/value pair.
type Sub struct {
	Token string
	Value string
}

// Substitutions is an ordered list of replacements.
type Substitutions []Sub

// Render applies subs to text in order.
func Render(text string, subs Substitutions) string {
	for _, s := range subs {
		text = strings.ReplaceAll(text, s.Token, s.Value)
	}
	return text
}

// Post renders one item into the post template.
func Post(postTpl string, item content.Item) string {
	return Render(postTpl, Substitutions{
		{TokenContent, item.BodyHTML},
		{TokenPermalink, item.URLPath},
		{TokenPostTitle, item.Title},
		{TokenPostDate, item.CreatedAt.Format(DateLayout)},
	})
}

// Item renders a standalone page for item: the rendered post spliced into
// base with an empty pagination block.
func Item(base, postTpl string, item content.Item) string {
	return Render(base, Substitutions{
		{TokenPosts, Post(postTpl, item)},
		{TokenPagination, ""},
	})
}

// Listing renders an index page holding items, in order, with the given
// pagination markup.
func Listing(base, postTpl string, items []content.Item, pagination string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(Post(postTpl, it))
	}
	return Render(base, Substitutions{
		{TokenPosts, b.String()},
		{TokenPagination, pagination},
	})
}

// Base fills the site-wide tokens of the base template.
func Base(base, styles, scripts, title, subtitle string) string {
	return Render(base, Substitutions{
		{TokenStyles, styles},
		{TokenScripts, scripts},
		{TokenTitle, title},
		{TokenSubtitle, subtitle},
	})
}

// Nav fills the {{pages}} token of the base template.
func Nav(base string, pages []content.Item) string {
	return Render(base, Substitutions{{TokenPages, PagesNav(pages)}})
}

// Styles returns one stylesheet link per name.
func Styles(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(`<link href="/resources/css/` + n + `" rel="stylesheet">`)
	}
	return b.String()
}

// Scripts returns one script tag per name.
func Scripts(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(`<script src="/resources/js/` + n + `"></script>`)
	}
	return b.String()
}

// PagesNav returns one navigation list item per page.
func PagesNav(pages []content.Item) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(`<li class="page-link"><a class="pure-button" href="` + p.URLPath + `">` + p.Title + `</a></li>`)
	}
	return b.String()
}
