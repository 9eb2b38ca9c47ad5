package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mirage/internal/build"
	"git.home.luguber.info/inful/mirage/internal/config"
)

// gatedService blocks every Run until released.
type gatedService struct {
	started chan string
	release chan error
	mu      sync.Mutex
	calls   []string
}

func newGatedService() *gatedService {
	return &gatedService{started: make(chan string, 16), release: make(chan error)}
}

func (g *gatedService) Run(ctx context.Context, req build.Request) (*build.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req.Trigger)
	g.mu.Unlock()
	g.started <- req.Trigger
	select {
	case err := <-g.release:
		if err != nil {
			return &build.Result{Status: build.StatusFailed}, err
		}
		return &build.Result{Status: build.StatusSuccess}, nil
	case <-ctx.Done():
		return &build.Result{Status: build.StatusCancelled}, ctx.Err()
	}
}

func (g *gatedService) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func waitStarted(t *testing.T, g *gatedService) string {
	t.Helper()
	select {
	case trig := <-g.started:
		return trig
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not start")
		return ""
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	return cfg
}

func mdEvent(cfg *config.Config, name string) Event {
	return Event{Path: filepath.Join(cfg.Root, "posts", name), Op: fsnotify.Write, Trigger: TriggerChange}
}

func TestProcessCoalescesQueuedEvents(t *testing.T) {
	cfg := testConfig(t)
	svc := newGatedService()
	loop := NewLoop(svc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Process(ctx)
		close(done)
	}()

	require.Equal(t, TriggerStartup, waitStarted(t, svc))
	svc.release <- nil

	loop.Notify(mdEvent(cfg, "a.md"))
	require.Equal(t, TriggerChange, waitStarted(t, svc))
	require.Equal(t, StateRebuilding, loop.State())

	for _, name := range []string{"b.md", "c.md", "d.md", "e.md"} {
		loop.Notify(mdEvent(cfg, name))
	}
	svc.release <- nil

	require.Equal(t, TriggerChange, waitStarted(t, svc))
	svc.release <- nil

	require.Eventually(t, func() bool { return loop.State() == StateIdle }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 3, svc.callCount())

	cancel()
	<-done
}

func TestProcessIgnoresIrrelevantEvents(t *testing.T) {
	cfg := testConfig(t)
	svc := newGatedService()
	loop := NewLoop(svc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Process(ctx)

	waitStarted(t, svc)
	svc.release <- nil

	loop.Notify(Event{Path: filepath.Join(cfg.Root, "site", "index.html"), Op: fsnotify.Write, Trigger: TriggerChange})
	loop.Notify(Event{Path: filepath.Join(cfg.Root, "posts", "a.txt"), Op: fsnotify.Write, Trigger: TriggerChange})
	loop.Notify(Event{Path: filepath.Join(cfg.Root, "posts", "a.md"), Op: fsnotify.Chmod, Trigger: TriggerChange})

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, svc.callCount())
}

func TestProcessContinuesAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	svc := newGatedService()

	var mu sync.Mutex
	var failures int
	loop := NewLoop(svc, cfg).OnResult(func(_ *build.Result, err error) {
		if err != nil {
			mu.Lock()
			failures++
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Process(ctx)

	waitStarted(t, svc)
	svc.release <- errors.New("missing templates")

	loop.Notify(mdEvent(cfg, "a.md"))
	waitStarted(t, svc)
	svc.release <- nil

	require.Eventually(t, func() bool { return svc.callCount() == 2 && loop.State() == StateIdle }, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, failures)
}

func TestRunWatchesFilesystem(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Root, "posts"), 0o755))
	svc := newGatedService()
	loop := NewLoop(svc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitStarted(t, svc)
	svc.release <- nil

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "posts", "new.md"), []byte("hi"), 0o600))
	require.Equal(t, TriggerChange, waitStarted(t, svc))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestRunPeriodicRebuild(t *testing.T) {
	cfg := testConfig(t)
	svc := newGatedService()
	loop := NewLoop(svc, cfg).WithInterval(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitStarted(t, svc)
	svc.release <- nil
	require.Equal(t, TriggerSchedule, waitStarted(t, svc))

	cancel()
	require.NoError(t, <-done)
}
