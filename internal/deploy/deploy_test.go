package deploy

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/retry"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "site")
	for key, body := range files {
		p := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

var sample = map[string]string{
	"index.html":                     "<p>index</p>",
	"posts/hello/index.html":         "<p>hello</p>",
	"resources/css/site.min.css":     "a{}",
	"resources/img/logo.png":         "png",
	"favicon.ico":                    "ico",
	"about/index.html":               "<p>about</p>",
	"2/index.html":                   "<p>page 2</p>",
	"resources/js/app.min.js":        "x()",
	"posts/second-post/index.html":   "<p>second</p>",
	"resources/img/nested/photo.jpg": "jpg",
}

func TestWalkKeys(t *testing.T) {
	root := writeTree(t, sample)
	files, err := Walk(root)
	require.NoError(t, err)

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
		require.Equal(t, int64(len(sample[f.Key])), f.Size)
	}
	require.Equal(t, []string{
		"2/index.html",
		"about/index.html",
		"favicon.ico",
		"index.html",
		"posts/hello/index.html",
		"posts/second-post/index.html",
		"resources/css/site.min.css",
		"resources/img/logo.png",
		"resources/img/nested/photo.jpg",
		"resources/js/app.min.js",
	}, keys)
}

func TestWalkMissingTree(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "site"))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryDeploy))
}

var fast = retry.NewPolicy(retry.ModeFixed, time.Millisecond, time.Millisecond, 2)

type memorySink struct {
	objects   map[string]string
	fail      map[string]bool
	flaky     map[string]int
	committed bool
	closed    bool
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	if m.fail[key] {
		return errors.New("boom")
	}
	if m.flaky[key] > 0 {
		m.flaky[key]--
		return errors.New("connection reset")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = string(b)
	return nil
}

func (m *memorySink) Commit(context.Context) error {
	m.committed = true
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestPublishUploadsEveryFile(t *testing.T) {
	root := writeTree(t, sample)
	sink := &memorySink{objects: map[string]string{}}

	res, err := Publish(context.Background(), root, sink)
	require.NoError(t, err)
	require.Equal(t, len(sample), res.Uploaded)
	require.Zero(t, res.Failed)
	require.Equal(t, sample, sink.objects)
	require.True(t, sink.committed)
	require.True(t, sink.closed)
}

func TestPublishCountsFailures(t *testing.T) {
	root := writeTree(t, sample)
	sink := &memorySink{
		objects: map[string]string{},
		fail:    map[string]bool{"favicon.ico": true, "index.html": true},
	}

	res, err := Publish(context.Background(), root, sink, WithRetry(fast))
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryDeploy))
	require.Equal(t, 2, res.Failed)
	require.Equal(t, len(sample)-2, res.Uploaded)
	require.False(t, sink.committed)
	require.True(t, sink.closed)
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	root := writeTree(t, sample)
	sink := &memorySink{
		objects: map[string]string{},
		flaky:   map[string]int{"index.html": 2},
	}

	res, err := Publish(context.Background(), root, sink, WithRetry(fast))
	require.NoError(t, err)
	require.Zero(t, res.Failed)
	require.Equal(t, sample["index.html"], sink.objects["index.html"])
}

func TestPolicyFor(t *testing.T) {
	require.Equal(t, retry.DefaultPolicy(), PolicyFor(config.DeployConfig{}))

	zero := 0
	p := PolicyFor(config.DeployConfig{Retries: &zero, RetryBackoff: "exponential"})
	require.Equal(t, 0, p.MaxRetries)
	require.Equal(t, retry.ModeExponential, p.Mode)
}

func TestFilesystemSink(t *testing.T) {
	root := writeTree(t, sample)
	target := filepath.Join(t.TempDir(), "public")

	cfg := config.Default()
	cfg.Deploy = config.DeployConfig{Service: "filesystem", ContainerName: target}
	sink, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = Publish(context.Background(), root, sink)
	require.NoError(t, err)
	for key, body := range sample {
		got, err := os.ReadFile(filepath.Join(target, filepath.FromSlash(key)))
		require.NoError(t, err)
		require.Equal(t, body, string(got))
	}
}

func TestGitSinkCommitsOnBranch(t *testing.T) {
	root := writeTree(t, sample)
	repoDir := filepath.Join(t.TempDir(), "pages")
	d := config.DeployConfig{Service: "git", ContainerName: repoDir, Branch: "gh-pages"}

	sink, err := NewGitSink(context.Background(), d)
	require.NoError(t, err)
	_, err = Publish(context.Background(), root, sink)
	require.NoError(t, err)

	repo, err := git.PlainOpen(repoDir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, plumbing.NewBranchReferenceName("gh-pages"), head.Name())

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)
	for key, body := range sample {
		f, err := tree.File(key)
		require.NoError(t, err, key)
		got, err := f.Contents()
		require.NoError(t, err)
		require.Equal(t, body, got)
	}

	// A second deploy without the about page removes it from the branch.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "about")))
	sink, err = NewGitSink(context.Background(), d)
	require.NoError(t, err)
	_, err = Publish(context.Background(), root, sink)
	require.NoError(t, err)

	head, err = repo.Head()
	require.NoError(t, err)
	commit, err = repo.CommitObject(head.Hash())
	require.NoError(t, err)
	tree, err = commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("about/index.html")
	require.Error(t, err)
	_, err = tree.File("index.html")
	require.NoError(t, err)
}

func TestNewRejectsUnknownService(t *testing.T) {
	cfg := config.Default()
	cfg.Deploy = config.DeployConfig{Service: "ftp", ContainerName: "x"}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}
