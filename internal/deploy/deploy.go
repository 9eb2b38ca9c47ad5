// Package deploy uploads a finished output tree to a configured sink.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
	"git.home.luguber.info/inful/mirage/internal/retry"
)

// Sink receives every file of a finished tree keyed by its slash-separated
// path relative to the output root.
type Sink interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Commit finalises a deploy in which every Put succeeded.
	Commit(ctx context.Context) error
	Close() error
}

// File is one entry of the tree being deployed.
type File struct {
	Key  string
	Path string
	Size int64
}

// Result summarises a deploy.
type Result struct {
	Provider string
	Uploaded int
	Failed   int
	Bytes    int64
}

// New opens the sink selected by cfg.Deploy.
func New(ctx context.Context, cfg *config.Config) (Sink, error) {
	if err := config.ValidateDeploy(cfg); err != nil {
		return nil, err
	}
	d := cfg.Deploy
	switch d.Service {
	case "nats":
		return NewNATSSink(ctx, d)
	case "git":
		return NewGitSink(ctx, d)
	case "filesystem":
		return NewFilesystemSink(d.ContainerName)
	default:
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown deploy service %q", d.Service)).Build()
	}
}

// Option configures Publish.
type Option func(*publisher)

type publisher struct {
	policy retry.Policy
}

// WithRetry sets the backoff policy for failed uploads.
func WithRetry(p retry.Policy) Option {
	return func(pub *publisher) { pub.policy = p }
}

// PolicyFor builds the upload retry policy from d.
func PolicyFor(d config.DeployConfig) retry.Policy {
	retries := -1
	if d.Retries != nil {
		retries = *d.Retries
	}
	return retry.NewPolicy(retry.Mode(d.RetryBackoff), 0, 0, retries)
}

// Walk lists the regular files under root in lexical order.
func Walk(root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ferrors.DeployError("output tree not found; run compile first").
			WithCause(err).
			WithContext("path", root).
			Fatal().
			UserAction().
			Build()
	}

	var files []File
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Key: filepath.ToSlash(rel), Path: p, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to walk output tree").
			WithContext("path", root).
			Fatal().
			Build()
	}
	return files, nil
}

// Publish uploads every file under root to sink. Individual upload failures
// are logged and counted; the sink is only committed when none failed.
func Publish(ctx context.Context, root string, sink Sink, opts ...Option) (Result, error) {
	pub := publisher{policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(&pub)
	}

	res := Result{Provider: sink.Name()}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close deploy sink", logfields.Provider(sink.Name()), logfields.Error(err))
		}
	}()

	files, err := Walk(root)
	if err != nil {
		return res, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := pub.policy.Do(ctx, retryable, func() error { return upload(ctx, sink, f) })
		if err != nil {
			res.Failed++
			slog.Warn("Upload failed",
				logfields.Provider(sink.Name()),
				logfields.ObjectKey(f.Key),
				logfields.Error(err))
			continue
		}
		res.Uploaded++
		res.Bytes += f.Size
		slog.Debug("Uploaded", logfields.Provider(sink.Name()), logfields.ObjectKey(f.Key))
	}

	if res.Failed > 0 {
		return res, ferrors.DeployError(fmt.Sprintf("%d of %d uploads failed", res.Failed, len(files))).
			WithContext("provider", sink.Name()).
			WithContext("failed", res.Failed).
			Fatal().
			Build()
	}
	if err := sink.Commit(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return res, err
		}
		return res, ferrors.WrapError(err, ferrors.CategoryDeploy, "failed to finalise deploy").
			WithContext("provider", sink.Name()).
			Fatal().
			Build()
	}

	slog.Info("Deploy complete",
		logfields.Provider(sink.Name()),
		logfields.Count(res.Uploaded),
		slog.Int64("bytes", res.Bytes))
	return res, nil
}

// retryable rejects errors that a second attempt cannot fix.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if c, ok := ferrors.AsClassified(err); ok {
		return c.CanRetry()
	}
	return true
}

func upload(ctx context.Context, sink Sink, f File) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()
	return sink.Put(ctx, f.Key, fh, f.Size)
}

// writeFile copies r to dir/key, creating parent directories.
func writeFile(dir, key string, r io.Reader) error {
	dst := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst) // #nosec G304 -- key comes from our own output tree
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
