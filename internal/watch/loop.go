// Package watch rebuilds the site whenever a source file changes.
//
// A filesystem listener and an optional periodic scheduler feed a single
// event channel. One consumer goroutine drives the Idle/Rebuilding state
// machine, so compiles never overlap and bursts of changes collapse into at
// most one follow-up rebuild.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mirage/internal/build"
	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
	"git.home.luguber.info/inful/mirage/internal/metrics"
	"git.home.luguber.info/inful/mirage/internal/observability"
)

// State of the watch loop.
type State int32

const (
	StateIdle State = iota
	StateRebuilding
)

func (s State) String() string {
	if s == StateRebuilding {
		return "rebuilding"
	}
	return "idle"
}

// Rebuild triggers.
const (
	TriggerStartup  = "startup"
	TriggerChange   = "change"
	TriggerSchedule = "schedule"
)

const eventBuffer = 256

// Event is one request to consider a rebuild.
type Event struct {
	Path    string
	Op      fsnotify.Op
	Trigger string
}

// Loop owns the event channel and the rebuild state machine.
type Loop struct {
	svc      build.Service
	cfg      *config.Config
	filter   Filter
	recorder metrics.Recorder
	interval time.Duration
	events   chan Event
	state    atomic.Int32
	onResult func(*build.Result, error)
}

// NewLoop creates a Loop that compiles cfg's project with svc.
func NewLoop(svc build.Service, cfg *config.Config) *Loop {
	return &Loop{
		svc:      svc,
		cfg:      cfg,
		filter:   Filter{Output: cfg.Paths().Output},
		recorder: metrics.NoopRecorder{},
		interval: cfg.RebuildInterval(),
		events:   make(chan Event, eventBuffer),
	}
}

// WithRecorder sets the metrics recorder.
func (l *Loop) WithRecorder(r metrics.Recorder) *Loop {
	if r != nil {
		l.recorder = r
	}
	return l
}

// WithInterval overrides the periodic rebuild interval (zero disables it).
func (l *Loop) WithInterval(d time.Duration) *Loop {
	l.interval = d
	return l
}

// OnResult registers a callback invoked after every compile.
func (l *Loop) OnResult(fn func(*build.Result, error)) *Loop {
	l.onResult = fn
	return l
}

// State returns the current state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Notify queues ev without blocking. A full queue already guarantees a
// pending rebuild, so the event is dropped.
func (l *Loop) Notify(ev Event) {
	select {
	case l.events <- ev:
	default:
		slog.Debug("Watch queue full; event coalesced", logfields.Path(ev.Path))
	}
}

// Run performs the initial compile, then watches the project root and
// rebuilds on change until ctx is cancelled. It waits for the listener and
// the scheduler to stop before returning.
func (l *Loop) Run(ctx context.Context) error {
	root := l.cfg.Paths().Root
	listener, err := newListener(root, l.filter, l.Notify)
	if err != nil {
		return err
	}

	var sched *scheduler
	if l.interval > 0 {
		if sched, err = newScheduler(l.interval, l.Notify); err != nil {
			_ = listener.Close()
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.Run(ctx)
	}()
	if sched != nil {
		sched.Start()
	}

	slog.Info("Watching for file changes", logfields.Path(root))
	l.Process(ctx)

	if sched != nil {
		if err := sched.Stop(); err != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(err))
		}
	}
	_ = listener.Close()
	wg.Wait()
	slog.Info("Watch loop stopped")
	return nil
}

// Process compiles once and then consumes events until ctx is cancelled.
func (l *Loop) Process(ctx context.Context) {
	l.rebuild(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			if !l.accept(ev) {
				continue
			}
			slog.Warn("Source file changed, recompiling", logfields.Path(ev.Path), slog.String("trigger", ev.Trigger))
			trigger := ev.Trigger
			for {
				l.rebuild(ctx, trigger)
				if ctx.Err() != nil || !l.drain() {
					break
				}
				trigger = TriggerChange
			}
		}
	}
}

func (l *Loop) accept(ev Event) bool {
	if ev.Trigger == TriggerSchedule {
		return true
	}
	ok, reason := l.filter.Relevant(fsnotify.Event{Name: ev.Path, Op: ev.Op})
	if !ok {
		slog.Debug("Ignoring change", logfields.Path(ev.Path), slog.String("reason", reason))
	}
	return ok
}

// drain empties the queue and reports whether any queued event was relevant.
func (l *Loop) drain() bool {
	pending := false
	for {
		select {
		case ev := <-l.events:
			if l.accept(ev) {
				pending = true
			}
		default:
			return pending
		}
	}
}

func (l *Loop) rebuild(ctx context.Context, trigger string) {
	l.state.Store(int32(StateRebuilding))
	defer l.state.Store(int32(StateIdle))

	l.recorder.IncRebuildTrigger(trigger)
	res, err := l.svc.Run(ctx, build.Request{Config: l.cfg, Trigger: trigger})
	if err != nil && ctx.Err() == nil {
		werr := ferrors.WatchError("rebuild failed").
			WithCause(err).
			WithContext("trigger", trigger).
			Build()
		observability.ErrorContext(ctx, werr.Message(),
			logfields.Error(err),
			logfields.ErrorCategory(string(ferrors.GetCategory(err))),
			slog.Bool("transient", werr.IsTransient()))
	}
	if l.onResult != nil {
		l.onResult(res, err)
	}
}
