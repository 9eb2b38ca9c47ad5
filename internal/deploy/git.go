package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

const remoteName = "origin"

// GitSink mirrors the tree into a repository working copy, commits it on a
// branch and optionally pushes the branch.
type GitSink struct {
	dir    string
	repo   *git.Repository
	branch plumbing.ReferenceName
	remote string
	auth   transport.AuthMethod
}

// NewGitSink opens the repository at d.ContainerName, initialising it when
// missing, checks out d.Branch and clears the working copy.
func NewGitSink(_ context.Context, d config.DeployConfig) (*GitSink, error) {
	dir := d.ContainerName
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err = os.MkdirAll(dir, 0o750); err == nil {
			repo, err = git.PlainInit(dir, false)
		}
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDeploy, "failed to open deploy repository").
			WithContext("path", dir).
			Fatal().
			Build()
	}

	branch := d.Branch
	if branch == "" {
		branch = config.DefaultBranch
	}
	s := &GitSink{
		dir:    dir,
		repo:   repo,
		branch: plumbing.NewBranchReferenceName(branch),
		remote: d.Remote,
	}
	if d.AccessKey != "" || d.SecretKey != "" {
		s.auth = &http.BasicAuth{Username: d.AccessKey, Password: d.SecretKey}
	}

	if err := s.checkout(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDeploy, "failed to check out deploy branch").
			WithContext("branch", branch).
			Fatal().
			Build()
	}
	if err := s.clear(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear deploy working copy").
			WithContext("path", dir).
			Fatal().
			Build()
	}
	return s, nil
}

func (s *GitSink) checkout() error {
	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Unborn HEAD: point it at the branch so the first commit lands there.
		return s.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, s.branch))
	}
	if err != nil {
		return err
	}
	if head.Name() == s.branch {
		return nil
	}
	w, err := s.repo.Worktree()
	if err != nil {
		return err
	}
	_, refErr := s.repo.Reference(s.branch, true)
	return w.Checkout(&git.CheckoutOptions{Branch: s.branch, Create: refErr != nil, Force: true})
}

// clear removes everything but .git so files deleted from the site disappear
// from the next commit.
func (s *GitSink) clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *GitSink) Name() string { return "git" }

func (s *GitSink) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	return writeFile(s.dir, key, r)
}

// Commit stages the working copy, commits when anything changed and pushes
// the branch when a remote is configured.
func (s *GitSink) Commit(ctx context.Context) error {
	w, err := s.repo.Worktree()
	if err != nil {
		return err
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage files: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		slog.Info("Deploy repository already up to date", logfields.Container(s.dir))
	} else {
		hash, err := w.Commit(fmt.Sprintf("Deploy site %s", time.Now().UTC().Format(time.RFC3339)), &git.CommitOptions{
			All:    true,
			Author: &object.Signature{
				Name:  "mirage",
				Email: "mirage@localhost",
				When:  time.Now(),
			},
		})
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		slog.Info("Committed site", logfields.Container(s.dir), slog.String("commit", hash.String()))
	}

	if s.remote == "" {
		return nil
	}
	return s.push(ctx)
}

func (s *GitSink) push(ctx context.Context) error {
	if _, err := s.repo.Remote(remoteName); errors.Is(err, git.ErrRemoteNotFound) {
		if _, err := s.repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{s.remote}}); err != nil {
			return fmt.Errorf("create remote: %w", err)
		}
	} else if err != nil {
		return err
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", s.branch, s.branch))
	err := s.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       s.auth,
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to push deploy branch").
			WithContext("remote", s.remote).
			Retryable().
			Build()
	}
	slog.Info("Pushed site", logfields.URL(s.remote), slog.String("branch", s.branch.Short()))
	return nil
}

func (s *GitSink) Close() error { return nil }
