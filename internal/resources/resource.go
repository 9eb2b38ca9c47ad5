// Package resources classifies, minifies and copies static assets into the
// output tree.
package resources

import (
	"path/filepath"
	"strings"
)

// Kind classifies a resource by extension.
type Kind string

const (
	KindCSS     Kind = "css"
	KindJS      Kind = "js"
	KindImage   Kind = "img"
	KindFavicon Kind = "favicon"
	KindUnknown Kind = "unknown"
)

const minSuffix = ".min"

// Resource is one source asset and where it lands in the output tree.
type Resource struct {
	SourcePath string
	Kind       Kind
	OutputName string
}

// Classify returns the kind of a file name, based on its lower-cased extension.
func Classify(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ico":
		return KindFavicon
	case ".jpg", ".jpeg", ".png", ".gif":
		return KindImage
	case ".css":
		return KindCSS
	case ".js":
		return KindJS
	default:
		return KindUnknown
	}
}

// IsMinified reports whether the file stem already ends in ".min".
func IsMinified(name string) bool {
	return strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), minSuffix)
}

// OutputName returns the published file name for name of the given kind.
// CSS and JS become {stem}.min.{kind} unless already minified.
func OutputName(name string, kind Kind) string {
	if kind != KindCSS && kind != KindJS {
		return name
	}
	if IsMinified(name) {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + minSuffix + "." + string(kind)
}

// New builds a Resource for a source path.
func New(path string) Resource {
	name := filepath.Base(path)
	kind := Classify(name)
	return Resource{SourcePath: path, Kind: kind, OutputName: OutputName(name, kind)}
}

// OutputDir returns the directory, relative to the output root, that holds kind.
// Favicons live at the root.
func OutputDir(kind Kind) string {
	switch kind {
	case KindCSS, KindJS, KindImage:
		return filepath.Join("resources", string(kind))
	default:
		return ""
	}
}
