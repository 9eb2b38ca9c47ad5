package content

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

const (
	markdownExt = ".md"
	draftSuffix = "_draft"
)

// SkipFunc is notified for every file the loader skips with a warning.
type SkipFunc func(path, reason string)

// Loader reads Markdown documents from a flat directory.
type Loader struct {
	conv   Converter
	onSkip SkipFunc
}

// NewLoader creates a Loader. A nil converter selects the goldmark default.
func NewLoader(conv Converter) *Loader {
	if conv == nil {
		conv = NewGoldmarkConverter()
	}
	return &Loader{conv: conv}
}

// OnSkip registers a callback invoked for every skipped file.
func (l *Loader) OnSkip(fn SkipFunc) *Loader {
	l.onSkip = fn
	return l
}

// Load lazily yields one Item per Markdown file in dir, in directory-listing
// order. Sub-directories are ignored; non-Markdown files and drafts are
// skipped with a warning. A read or conversion failure yields a fatal error
// and ends the sequence. A missing directory yields nothing.
func (l *Loader) Load(ctx context.Context, dir string, kind Kind) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.WarnContext(ctx, "Content directory missing; treating as empty",
					logfields.Path(dir), logfields.Kind(string(kind)))
				return
			}
			yield(Item{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to list content directory").
				WithContext("path", dir).
				Fatal().
				Build())
			return
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			full := filepath.Join(dir, name)
			ext := filepath.Ext(name)
			stem := strings.TrimSuffix(name, ext)

			if ext != markdownExt {
				l.skip(ctx, full, kind, "not a markdown file")
				continue
			}
			if strings.HasSuffix(stem, draftSuffix) {
				l.skip(ctx, full, kind, "draft")
				continue
			}
			if !ValidSlug(Slug(stem)) {
				l.skip(ctx, full, kind, "invalid slug")
				continue
			}

			item, err := l.read(full, stem, kind)
			if err != nil {
				yield(Item{}, err)
				return
			}
			slog.InfoContext(ctx, "Compiling "+string(kind), logfields.File(name))
			if !yield(item, nil) {
				return
			}
		}
	}
}

// LoadAll collects Load into a slice. On error no partial set is returned.
func (l *Loader) LoadAll(ctx context.Context, dir string, kind Kind) ([]Item, error) {
	var items []Item
	for item, err := range l.Load(ctx, dir, kind) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *Loader) read(path, stem string, kind Kind) (Item, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Item{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read content file").
			WithContext("path", path).
			Fatal().
			Build()
	}
	info, err := os.Stat(path)
	if err != nil {
		return Item{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to stat content file").
			WithContext("path", path).
			Fatal().
			Build()
	}
	body, err := l.conv.Convert(src)
	if err != nil {
		return Item{}, ferrors.WrapError(err, ferrors.CategoryContent, "failed to convert markdown").
			WithContext("path", path).
			Fatal().
			Build()
	}
	slug := Slug(stem)
	return Item{
		Slug:       slug,
		Title:      stem,
		URLPath:    URLPath(kind, slug),
		BodyHTML:   body,
		CreatedAt:  CreatedAt(info),
		Kind:       kind,
		SourcePath: path,
	}, nil
}

func (l *Loader) skip(ctx context.Context, path string, kind Kind, reason string) {
	slog.WarnContext(ctx, "Skipping file", logfields.Path(path), logfields.Kind(string(kind)), slog.String("reason", reason))
	if l.onSkip != nil {
		l.onSkip(path, reason)
	}
}

// CheckUnique returns a fatal content error if two items share a URL path.
func CheckUnique(items []Item) error {
	seen := make(map[string]string, len(items))
	for _, it := range items {
		if prev, ok := seen[it.URLPath]; ok {
			return ferrors.ContentError("duplicate url path").
				WithContext("url", it.URLPath).
				WithContext("first", prev).
				WithContext("second", it.SourcePath).
				Build()
		}
		seen[it.URLPath] = it.SourcePath
	}
	return nil
}

// Load is a convenience wrapper around NewLoader(conv).Load.
func Load(ctx context.Context, dir string, kind Kind, conv Converter) iter.Seq2[Item, error] {
	return NewLoader(conv).Load(ctx, dir, kind)
}

// LoadAll is a convenience wrapper around NewLoader(conv).LoadAll.
func LoadAll(ctx context.Context, dir string, kind Kind, conv Converter) ([]Item, error) {
	return NewLoader(conv).LoadAll(ctx, dir, kind)
}
