package resources

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// Result lists the published stylesheet and script names in walk order,
// plus per-kind counts.
type Result struct {
	CSS      []string
	JS       []string
	Images   int
	Favicons int
	Skipped  int
}

// SkipFunc is notified for every resource skipped with a warning.
type SkipFunc func(path, reason string)

// Pipeline walks a resources directory and publishes each asset.
type Pipeline struct {
	minifier Minifier
	onSkip   SkipFunc
}

// NewPipeline creates a Pipeline. A nil minifier selects the tdewolff default.
func NewPipeline(m Minifier) *Pipeline {
	if m == nil {
		m = NewTdewolffMinifier()
	}
	return &Pipeline{minifier: m}
}

// OnSkip registers a callback invoked for every skipped resource.
func (p *Pipeline) OnSkip(fn SkipFunc) *Pipeline {
	p.onSkip = fn
	return p
}

// Process walks srcDir in lexical order and writes every recognised asset
// under outRoot. The output directories must already exist. Unknown files,
// name collisions and minifier failures are skipped; I/O failures are fatal.
func (p *Pipeline) Process(ctx context.Context, srcDir, outRoot string) (Result, error) {
	var res Result
	published := make(map[string]string)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == srcDir && errors.Is(walkErr, fs.ErrNotExist) {
				slog.WarnContext(ctx, "Resources directory missing; nothing to publish", logfields.Path(srcDir))
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r := New(path)
		if r.Kind == KindUnknown {
			p.skip(ctx, &res, path, "unknown resource type")
			return nil
		}

		rel := filepath.Join(OutputDir(r.Kind), r.OutputName)
		if first, dup := published[rel]; dup {
			p.skip(ctx, &res, path, "output name collides with "+first)
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if (r.Kind == KindCSS || r.Kind == KindJS) && !IsMinified(path) {
			out, err := p.minifier.Minify(r.Kind, data)
			if err != nil {
				p.skip(ctx, &res, path, "minify failed: "+err.Error())
				return nil
			}
			data = out
			slog.InfoContext(ctx, "Minified "+string(r.Kind)+" file", logfields.File(filepath.Base(path)))
		} else {
			slog.InfoContext(ctx, "Copying "+string(r.Kind)+" file", logfields.File(filepath.Base(path)))
		}

		if err := os.WriteFile(filepath.Join(outRoot, rel), data, 0o644); err != nil {
			return err
		}
		published[rel] = path

		switch r.Kind {
		case KindCSS:
			res.CSS = append(res.CSS, r.OutputName)
		case KindJS:
			res.JS = append(res.JS, r.OutputName)
		case KindImage:
			res.Images++
		case KindFavicon:
			res.Favicons++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		return res, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to publish resources").
			WithContext("path", srcDir).
			Fatal().
			Build()
	}
	return res, nil
}

func (p *Pipeline) skip(ctx context.Context, res *Result, path, reason string) {
	res.Skipped++
	slog.WarnContext(ctx, "Skipping resource", logfields.Path(path), slog.String("reason", reason))
	if p.onSkip != nil {
		p.onSkip(path, reason)
	}
}
