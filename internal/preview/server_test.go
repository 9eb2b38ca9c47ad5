package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirage/internal/build"
)

func site(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "posts", "hello"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<p>home</p>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "posts", "hello", "index.html"), []byte("<p>hello</p>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("top secret"), 0o600))
	return dir, root
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServeIndexAndDirectories(t *testing.T) {
	_, root := site(t)
	h := New(root, 0).Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "home")

	rec = get(t, h, "/posts/hello/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hello")

	rec = get(t, h, "/posts/hello")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = get(t, h, "/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeCannotEscapeRoot(t *testing.T) {
	_, root := site(t)
	h := New(root, 0).Handler()

	for _, target := range []string{"/../secret.txt", "/..%2fsecret.txt", "/%2e%2e/secret.txt"} {
		rec := get(t, h, target)
		require.NotContains(t, rec.Body.String(), "top secret", target)
	}
}

func TestServeFallsBackToPrev(t *testing.T) {
	_, root := site(t)
	require.NoError(t, os.Rename(root, build.PrevDir(root)))

	rec := get(t, New(root, 0).Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "home")
}

func TestHealthz(t *testing.T) {
	rec := get(t, New(t.TempDir(), 0).Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRejectsNonGet(t *testing.T) {
	_, root := site(t)
	rec := httptest.NewRecorder()
	New(root, 0).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	New(root, 0).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	s := New(t.TempDir(), 0)
	h := chain(s.logger, s.adapter, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := get(t, h, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestStartAndShutdown(t *testing.T) {
	_, root := site(t)
	s := New(root, 0)
	require.NoError(t, s.Start())
	require.NotZero(t, s.Port())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", s.Port()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Contains(t, string(body), "home")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
