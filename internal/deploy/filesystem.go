package deploy

import (
	"context"
	"io"
	"os"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// FilesystemSink copies the tree under a target directory.
type FilesystemSink struct {
	dir string
}

func NewFilesystemSink(dir string) (*FilesystemSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create deploy directory").
			WithContext("path", dir).
			Fatal().
			Build()
	}
	return &FilesystemSink{dir: dir}, nil
}

func (s *FilesystemSink) Name() string { return "filesystem" }

func (s *FilesystemSink) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	return writeFile(s.dir, key, r)
}

func (s *FilesystemSink) Commit(context.Context) error { return nil }

func (s *FilesystemSink) Close() error { return nil }
