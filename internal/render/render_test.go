package render

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirage/internal/content"
)

const (
	baseTpl = `<html><head><title>{{title}}</title>{{styles}}{{scripts}}</head>` +
		`<body><h1>{{title}}</h1><h2>{{subtitle}}</h2><ul>{{pages}}</ul>{{posts}}<nav>{{pagination}}</nav></body></html>`
	postTpl = `<article><a href="{{permalink}}">{{post-title}}</a><time>{{post-date}}</time>{{content}}</article>`
)

func sampleItem() content.Item {
	return content.Item{
		Slug:      "hello-world",
		Title:     "Hello World",
		URLPath:   "/posts/hello-world",
		BodyHTML:  "<p>Hi</p>",
		CreatedAt: time.Date(2024, time.March, 5, 9, 7, 3, 0, time.UTC),
		Kind:      content.KindPost,
	}
}

func TestRenderUnknownTokensPassThrough(t *testing.T) {
	out := Render("{{a}} {{unknown}} {{a}}", Substitutions{{"{{a}}", "x"}})
	require.Equal(t, "x {{unknown}} x", out)
}

func TestRenderIsOrderedAndLiteral(t *testing.T) {
	out := Render("{{a}}", Substitutions{{"{{a}}", "{{b}}"}, {"{{b}}", "<b>"}})
	require.Equal(t, "<b>", out)

	out = Render("{{b}}{{a}}", Substitutions{{"{{b}}", "{{a}}"}})
	require.Equal(t, "{{a}}{{a}}", out)
}

func TestPost(t *testing.T) {
	out := Post(postTpl, sampleItem())
	require.Equal(t, `<article><a href="/posts/hello-world">Hello World</a><time>Tue Mar  5 09:07:03 2024</time><p>Hi</p></article>`, out)
}

func TestItemClearsPagination(t *testing.T) {
	out := Item(baseTpl, postTpl, sampleItem())
	require.NotContains(t, out, TokenPagination)
	require.NotContains(t, out, TokenPosts)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("article").Length())
	require.Empty(t, doc.Find("nav").Text())
}

func TestListing(t *testing.T) {
	a, b := sampleItem(), sampleItem()
	b.Title, b.URLPath = "Second", "/posts/second"
	out := Listing(baseTpl, postTpl, []content.Item{a, b}, `<a href="/2">2</a>`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	titles := doc.Find("article > a").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	require.Equal(t, []string{"Hello World", "Second"}, titles)
	href, _ := doc.Find("nav a").Attr("href")
	require.Equal(t, "/2", href)
}

func TestBaseAndNav(t *testing.T) {
	base := Base(baseTpl, Styles([]string{"a.min.css", "b.min.css"}), Scripts([]string{"m.min.js"}), "T", "S")
	pages := []content.Item{{Title: "About", URLPath: "/about"}}
	out := Nav(base, pages)

	require.Contains(t, out, `<link href="/resources/css/a.min.css" rel="stylesheet"><link href="/resources/css/b.min.css" rel="stylesheet">`)
	require.Contains(t, out, `<script src="/resources/js/m.min.js"></script>`)
	require.Contains(t, out, `<li class="page-link"><a class="pure-button" href="/about">About</a></li>`)
	require.Contains(t, out, "<title>T</title>")
	require.Contains(t, out, "<h2>S</h2>")
	require.Contains(t, out, TokenPosts)
}

func TestEmptyLists(t *testing.T) {
	require.Empty(t, Styles(nil))
	require.Empty(t, Scripts(nil))
	require.Empty(t, PagesNav(nil))
}
