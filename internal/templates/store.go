// Package templates loads the raw HTML templates of a project.
//
// Templates are plain text with {{token}} placeholders; they are never parsed.
package templates

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// Required template names.
const (
	Base = "base"
	Post = "post"
)

// Required lists the templates every compile needs.
var Required = []string{Base, Post}

// Template is one raw template file keyed by its stem.
type Template struct {
	Name string
	Raw  string
}

// Store maps template names to raw text.
type Store map[string]Template

// Load reads every regular file in dir (non-recursive), keyed by file stem.
func Load(ctx context.Context, dir string) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to list templates").
			WithContext("path", dir).
			Fatal().
			Build()
	}

	store := make(Store, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		full := filepath.Join(dir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read template").
				WithContext("path", full).
				Fatal().
				Build()
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		slog.DebugContext(ctx, "Loading template", logfields.File(name))
		store[stem] = Template{Name: stem, Raw: string(data)}
	}
	return store, nil
}

// Missing returns the required template names absent from the store, sorted.
func (s Store) Missing() []string {
	var missing []string
	for _, name := range Required {
		if _, ok := s[name]; !ok {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}

// Require returns a fatal configuration error naming every missing required template.
func (s Store) Require() error {
	missing := s.Missing()
	if len(missing) == 0 {
		return nil
	}
	return ferrors.ConfigError("missing templates").
		WithContext("missing", strings.Join(missing, ",")).
		Build()
}

// Raw returns the raw text for name, or "" when absent.
func (s Store) Raw(name string) string {
	return s[name].Raw
}
