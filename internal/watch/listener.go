package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mirage/internal/build"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// listener pumps fsnotify events for a directory tree into notify.
type listener struct {
	w      *fsnotify.Watcher
	filter Filter
	notify func(Event)
}

func newListener(root string, filter Filter, notify func(Event)) (*listener, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to create file watcher").Fatal().Build()
	}
	l := &listener{w: w, filter: filter, notify: notify}
	if err := l.addDirsRecursive(root); err != nil {
		_ = w.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to watch project").
			WithContext("path", root).
			Fatal().
			Build()
	}
	return l, nil
}

// Run forwards events until ctx is cancelled or the watcher is closed.
func (l *listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.w.Events:
			if !ok {
				return
			}
			l.handle(ev)
		case err, ok := <-l.w.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (l *listener) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) && !l.skipDir(ev.Name) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = l.addDirsRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), logfields.Event(ev.Op.String()))
	l.notify(Event{Path: ev.Name, Op: ev.Op, Trigger: TriggerChange})
}

// skipDir reports whether a directory must not be watched.
func (l *listener) skipDir(path string) bool {
	if l.filter.Output != "" && build.IsBuildArtifact(l.filter.Output, path) {
		return true
	}
	base := filepath.Base(path)
	return base != "." && strings.HasPrefix(base, ".")
}

func (l *listener) addDirsRecursive(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && l.skipDir(path) {
			return filepath.SkipDir
		}
		if err := l.w.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (l *listener) Close() error {
	return l.w.Close()
}
