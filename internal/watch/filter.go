package watch

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mirage/internal/build"
)

// sourceExts are the extensions whose changes trigger a rebuild.
var sourceExts = []string{"html", "css", "js", "md"}

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// Filter decides which filesystem events are source changes.
type Filter struct {
	// Output is the published output directory; it and its staging and
	// backup siblings are never sources.
	Output string
}

// Relevant reports whether ev should trigger a rebuild, and why not otherwise.
func (f Filter) Relevant(ev fsnotify.Event) (bool, string) {
	if ev.Op&relevantOps == 0 {
		return false, "operation"
	}
	if f.Output != "" && build.IsBuildArtifact(f.Output, ev.Name) {
		return false, "output"
	}
	if shouldIgnore(ev.Name) {
		return false, "ignored file"
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(ev.Name)), ".")
	if !slices.Contains(sourceExts, ext) {
		return false, "extension"
	}
	return true, ""
}

// shouldIgnore returns true for hidden, editor swap and OS metadata files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
