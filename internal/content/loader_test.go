package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestSlug(t *testing.T) {
	require.Equal(t, "hello-world", Slug("Hello World"))
	require.Equal(t, "ünïcode-title", Slug("ÜNÏCODE Title"))
	require.Equal(t, "already-slugged", Slug("already-slugged"))
	require.Equal(t, "caf\u00e9", Slug("Cafe\u0301"))
}

func TestURLPath(t *testing.T) {
	require.Equal(t, "/posts/hello-world", URLPath(KindPost, "hello-world"))
	require.Equal(t, "/about", URLPath(KindPage, "about"))
}

func TestLoadPost(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Hello World.md", "# Hi\n\nSome *text*.\n")

	items, err := NewLoader(nil).LoadAll(context.Background(), dir, KindPost)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	require.Equal(t, "hello-world", it.Slug)
	require.Equal(t, "Hello World", it.Title)
	require.Equal(t, "/posts/hello-world", it.URLPath)
	require.Equal(t, "hello-world/index.html", it.OutputPath())
	require.Contains(t, it.BodyHTML, `<h1 id="hi">Hi</h1>`)
	require.Contains(t, it.BodyHTML, "<em>text</em>")
	require.False(t, it.CreatedAt.IsZero())
}

func TestLoadSkipsDraftsAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.md", "kept")
	writeFile(t, dir, "wip_draft.md", "draft")
	writeFile(t, dir, "notes.txt", "text")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "inner.md", "ignored")

	var skipped []string
	l := NewLoader(nil).OnSkip(func(path, _ string) { skipped = append(skipped, filepath.Base(path)) })
	items, err := l.LoadAll(context.Background(), dir, KindPage)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "/keep", items[0].URLPath)
	require.ElementsMatch(t, []string{"wip_draft.md", "notes.txt"}, skipped)
}

func TestLoadSkipsInvalidSlugs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".md", "empty stem")
	writeFile(t, dir, "...md", "dot-dot stem")
	writeFile(t, dir, "..md", "dot stem")
	writeFile(t, dir, "fine.md", "kept")

	skipped := map[string]string{}
	l := NewLoader(nil).OnSkip(func(path, reason string) { skipped[filepath.Base(path)] = reason })
	items, err := l.LoadAll(context.Background(), dir, KindPage)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "/fine", items[0].URLPath)
	require.Equal(t, map[string]string{".md": "invalid slug", "...md": "invalid slug", "..md": "invalid slug"}, skipped)
}

func TestValidSlug(t *testing.T) {
	require.True(t, ValidSlug("hello-world"))
	require.True(t, ValidSlug(".hidden"))
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		require.False(t, ValidSlug(bad), bad)
	}
}

func TestLoadMissingDirIsEmpty(t *testing.T) {
	items, err := NewLoader(nil).LoadAll(context.Background(), filepath.Join(t.TempDir(), "nope"), KindPost)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestLoadConverterErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.md", "b")

	boom := ConverterFunc(func([]byte) (string, error) { return "", errors.New("boom") })
	items, err := NewLoader(boom).LoadAll(context.Background(), dir, KindPost)
	require.Error(t, err)
	require.Nil(t, items)
	require.True(t, ferrors.HasSeverity(err, ferrors.SeverityFatal))
}

func TestLoadIsLazy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.md", "b")

	calls := 0
	conv := ConverterFunc(func(src []byte) (string, error) {
		calls++
		return string(src), nil
	})
	for _, err := range NewLoader(conv).Load(context.Background(), dir, KindPost) {
		require.NoError(t, err)
		break
	}
	require.Equal(t, 1, calls)
}

func TestCheckUnique(t *testing.T) {
	items := []Item{
		{URLPath: "/posts/a", SourcePath: "A.md"},
		{URLPath: "/posts/b", SourcePath: "b.md"},
	}
	require.NoError(t, CheckUnique(items))

	items = append(items, Item{URLPath: "/posts/a", SourcePath: "a.md"})
	err := CheckUnique(items)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryContent))
}
