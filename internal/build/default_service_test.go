package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirage/internal/config"
	"git.home.luguber.info/inful/mirage/internal/eventstore"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/metrics"
)

const (
	baseTemplate = `<!doctype html><html><head><title>{{title}}</title>{{styles}}</head>` +
		`<body><header><h1>{{title}}</h1><p class="sub">{{subtitle}}</p><ul class="nav">{{pages}}</ul></header>` +
		`<main>{{posts}}</main><footer class="pagination">{{pagination}}</footer>{{scripts}}</body></html>`
	postTemplate = `<article><h2><a href="{{permalink}}">{{post-title}}</a></h2>` +
		`<time>{{post-date}}</time><div class="body">{{content}}</div></article>`
)

type project struct {
	root string
	cfg  *config.Config
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{root: root, cfg: &config.Config{BlogTitle: "Mirage", BlogSubtitle: "A blog", Port: 8000, Root: root}}
	p.write(t, "templates/base.html", baseTemplate)
	p.write(t, "templates/post.html", postTemplate)
	return p
}

func (p *project) write(t *testing.T, rel, body string) {
	t.Helper()
	path := filepath.Join(p.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func (p *project) site() string { return filepath.Join(p.root, "site") }

func (p *project) doc(t *testing.T, rel string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join(p.site(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func (p *project) run(t *testing.T, svc *DefaultService) (*Result, error) {
	t.Helper()
	return svc.Run(context.Background(), Request{Config: p.cfg, Trigger: "test"})
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return files
}

func TestRunFullSite(t *testing.T) {
	p := newProject(t)
	p.write(t, "pages/About Me.md", "About *me*.")
	p.write(t, "posts/First Post.md", "# First\n\nHello.")
	p.write(t, "posts/later_draft.md", "not yet")
	p.write(t, "posts/notes.txt", "ignored")
	p.write(t, "resources/css/app.css", "body {  margin : 0 ; }")
	p.write(t, "resources/css/pure.min.css", "a{ }")
	p.write(t, "resources/js/main.js", "var  x = 1;")
	p.write(t, "resources/img/logo.png", "png")
	p.write(t, "resources/favicon.ico", "ico")

	res, err := p.run(t, NewService())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.NotEmpty(t, res.BuildID)
	require.Equal(t, Counts{Pages: 1, Posts: 1, ListingPages: 1, CSS: 2, JS: 1, Images: 1, Favicons: 1, Skipped: 2}, res.Counts)

	require.FileExists(t, filepath.Join(p.site(), "about-me", "index.html"))
	require.FileExists(t, filepath.Join(p.site(), "posts", "first-post", "index.html"))
	require.FileExists(t, filepath.Join(p.site(), "resources", "css", "app.min.css"))
	require.FileExists(t, filepath.Join(p.site(), "resources", "js", "main.min.js"))
	require.FileExists(t, filepath.Join(p.site(), "resources", "img", "logo.png"))
	require.FileExists(t, filepath.Join(p.site(), "favicon.ico"))
	require.NoDirExists(t, filepath.Join(p.site(), "posts", "later_draft"))

	index := p.doc(t, "index.html")
	require.Equal(t, "Mirage", index.Find("title").Text())
	require.Equal(t, "A blog", index.Find("p.sub").Text())
	require.Equal(t, 1, index.Find("article").Length())
	require.Empty(t, index.Find("footer.pagination").Text())

	hrefs := index.Find("link[rel=stylesheet]").Map(func(_ int, s *goquery.Selection) string {
		h, _ := s.Attr("href")
		return h
	})
	require.Equal(t, []string{"/resources/css/app.min.css", "/resources/css/pure.min.css"}, hrefs)
	src, _ := index.Find("script").Attr("src")
	require.Equal(t, "/resources/js/main.min.js", src)

	nav := index.Find("ul.nav li.page-link a.pure-button")
	require.Equal(t, 1, nav.Length())
	navHref, _ := nav.Attr("href")
	require.Equal(t, "/about-me", navHref)
	require.Equal(t, "About Me", nav.Text())

	post := p.doc(t, "posts/first-post/index.html")
	link, _ := post.Find("article h2 a").Attr("href")
	require.Equal(t, "/posts/first-post", link)
	require.Equal(t, "First", post.Find("article .body h1").Text())
	_, err = time.Parse(time.ANSIC, post.Find("time").Text())
	require.NoError(t, err)

	matches, _ := filepath.Glob(p.site() + ".staging-*")
	require.Empty(t, matches)
	require.NoDirExists(t, PrevDir(p.site()))
}

func TestRunPaginatesTwentyFivePosts(t *testing.T) {
	p := newProject(t)
	for i := range 25 {
		p.write(t, fmt.Sprintf("posts/post %02d.md", i), fmt.Sprintf("body %d", i))
	}

	res, err := p.run(t, NewService())
	require.NoError(t, err)
	require.Equal(t, 25, res.Counts.Posts)
	require.Equal(t, 3, res.Counts.ListingPages)

	require.Equal(t, 10, p.doc(t, "index.html").Find("article").Length())
	require.Equal(t, 10, p.doc(t, "2/index.html").Find("article").Length())
	last := p.doc(t, "3/index.html")
	require.Equal(t, 5, last.Find("article").Length())

	raw, err := os.ReadFile(filepath.Join(p.site(), "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `1 <a href="/2">2</a> <a href="/3">3</a>  &bull; <a href="/2">Older &gt;</a>`)

	raw, err = os.ReadFile(filepath.Join(p.site(), "3", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `<a href="/2">&lt; Newer</a> &bull; <a href="/">1</a> <a href="/2">2</a> 3 `)
	require.NotContains(t, string(raw), "Older")
}

func TestRunIsIdempotent(t *testing.T) {
	p := newProject(t)
	p.write(t, "posts/One.md", "one")
	p.write(t, "posts/Two.md", "two")
	p.write(t, "pages/About.md", "about")
	p.write(t, "resources/site.css", "p { color: blue; }")

	_, err := p.run(t, NewService())
	require.NoError(t, err)
	first := snapshot(t, p.site())

	_, err = p.run(t, NewService())
	require.NoError(t, err)
	require.Equal(t, first, snapshot(t, p.site()))
}

func TestRunMissingPostTemplateWritesNothing(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(p.root, "templates", "post.html")))
	p.write(t, "posts/One.md", "one")

	res, err := p.run(t, NewService())
	require.Error(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, StageTemplates, res.FailedStage)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	require.NoDirExists(t, p.site())
	matches, _ := filepath.Glob(p.site() + ".staging-*")
	require.Empty(t, matches)
}

func TestRunFailureKeepsPublishedTree(t *testing.T) {
	p := newProject(t)
	p.write(t, "posts/One.md", "one")
	_, err := p.run(t, NewService())
	require.NoError(t, err)
	before := snapshot(t, p.site())

	require.NoError(t, os.Remove(filepath.Join(p.root, "templates", "post.html")))
	p.write(t, "posts/Two.md", "two")
	_, err = p.run(t, NewService())
	require.Error(t, err)
	require.Equal(t, before, snapshot(t, p.site()))
}

func TestRunDuplicateSlugIsFatal(t *testing.T) {
	p := newProject(t)
	p.write(t, "posts/Hello World.md", "a")
	p.write(t, "posts/hello world.md", "b")

	res, err := p.run(t, NewService())
	require.Error(t, err)
	require.Equal(t, StageContent, res.FailedStage)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryContent))
	require.NoDirExists(t, p.site())
}

func TestRunPageCollidingWithListingPage(t *testing.T) {
	p := newProject(t)
	p.write(t, "pages/2.md", "page two")
	for i := range 11 {
		p.write(t, fmt.Sprintf("posts/p%02d.md", i), "x")
	}

	res, err := p.run(t, NewService())
	require.Error(t, err)
	require.Equal(t, StageIndex, res.FailedStage)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryContent))
}

func TestRunWithoutPostsWritesEmptyIndex(t *testing.T) {
	p := newProject(t)
	res, err := p.run(t, NewService())
	require.NoError(t, err)
	require.Equal(t, 1, res.Counts.ListingPages)
	require.Equal(t, 0, p.doc(t, "index.html").Find("article").Length())
}

func TestRunSkipsContentWithInvalidSlug(t *testing.T) {
	p := newProject(t)
	p.write(t, "pages/...md", "escape")
	p.write(t, "posts/.md", "no name")
	p.write(t, "posts/real.md", "real")

	res, err := p.run(t, NewService())
	require.NoError(t, err)
	require.Equal(t, 1, res.Counts.Posts)
	require.Equal(t, 0, res.Counts.Pages)
	require.Equal(t, 2, res.Counts.Skipped)
	require.NoFileExists(t, filepath.Join(p.root, "index.html"))
	require.NoFileExists(t, filepath.Join(p.site(), "posts", "index.html"))
	require.FileExists(t, filepath.Join(p.site(), "posts", "real", "index.html"))
}

func TestRunCancelled(t *testing.T) {
	p := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewService().Run(ctx, Request{Config: p.cfg})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusCancelled, res.Status)
	require.NoDirExists(t, p.site())
}

func TestRunRequiresConfig(t *testing.T) {
	res, err := NewService().Run(context.Background(), Request{})
	require.Error(t, err)
	require.Equal(t, StatusFailed, res.Status)
}

func TestRunCustomOutputDir(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "public")
	res, err := NewService().Run(context.Background(), Request{Config: p.cfg, OutputDir: out})
	require.NoError(t, err)
	require.Equal(t, out, res.OutputPath)
	require.FileExists(t, filepath.Join(out, "index.html"))
}

func TestRunJournalsEvents(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	p := newProject(t)
	p.write(t, "posts/One.md", "one")
	p.write(t, "posts/wip_draft.md", "wip")

	res, err := p.run(t, NewService().WithJournal(store))
	require.NoError(t, err)

	events, err := store.GetByBuildID(context.Background(), res.BuildID)
	require.NoError(t, err)
	require.Equal(t, eventstore.TypeBuildStarted, events[0].Type())
	require.Equal(t, eventstore.TypeBuildCompleted, events[len(events)-1].Type())

	history, err := eventstore.History(context.Background(), store, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, eventstore.StatusSuccess, history[0].Status)
	require.Equal(t, "test", history[0].Trigger)
	require.Equal(t, 1, history[0].Counts.Posts)
	require.Len(t, history[0].Skipped, 1)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	outcomes []metrics.BuildOutcomeLabel
	stages   []string
	skipped  map[string]int
}

func (r *countingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *countingRecorder) IncStageResult(stage string, res metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage+":"+string(res))
}

func (r *countingRecorder) IncSkipped(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipped == nil {
		r.skipped = map[string]int{}
	}
	r.skipped[kind]++
}

func TestRunRecordsMetrics(t *testing.T) {
	rec := &countingRecorder{}
	p := newProject(t)
	p.write(t, "resources/readme.txt", "?")

	_, err := p.run(t, NewService().WithRecorder(rec))
	require.NoError(t, err)
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
	require.Len(t, rec.stages, 10)
	require.True(t, strings.HasPrefix(rec.stages[9], StagePublish))
	require.Equal(t, 1, rec.skipped["resource"])

	require.NoError(t, os.Remove(filepath.Join(p.root, "templates", "base.html")))
	_, err = p.run(t, NewService().WithRecorder(rec))
	require.Error(t, err)
	require.Equal(t, metrics.BuildOutcomeFailed, rec.outcomes[1])
	require.Contains(t, rec.stages, StageTemplates+":"+string(metrics.ResultFatal))
}
