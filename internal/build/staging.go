package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/mirage/internal/logfields"
)

const (
	stagingInfix = ".staging-"
	prevSuffix   = ".prev"
)

// StagingDir returns the staging directory for a build of output.
func StagingDir(output, buildID string) string {
	return output + stagingInfix + buildID
}

// PrevDir returns the backup directory used while promoting a new tree.
func PrevDir(output string) string {
	return output + prevSuffix
}

// IsBuildArtifact reports whether path lies inside output, its backup or any
// of its staging directories.
func IsBuildArtifact(output, path string) bool {
	output = filepath.Clean(output)
	path = filepath.Clean(path)
	for _, dir := range []string{output, PrevDir(output)} {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return strings.HasPrefix(path, output+stagingInfix)
}

// staleStagingAge is how long a staging directory must go unmodified before
// another build treats it as abandoned.
const staleStagingAge = time.Hour

// removeStaleStaging deletes staging directories left behind by interrupted
// builds. Directories modified within maxAge may belong to a concurrent build
// and are kept.
func removeStaleStaging(output string, maxAge time.Duration) {
	matches, err := filepath.Glob(output + stagingInfix + "*")
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(m); err != nil {
			slog.Warn("Failed to remove stale staging directory", logfields.Path(m), logfields.Error(err))
		}
	}
}

// promote moves stage over output: output -> output.prev, stage -> output,
// then removes output.prev. If the second rename fails the backup is restored.
func promote(stage, output string) error {
	if _, err := os.Stat(stage); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}
	prev := PrevDir(output)
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("remove previous backup: %w", err)
	}
	hadOutput := false
	if _, err := os.Stat(output); err == nil {
		if err := os.Rename(output, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
		hadOutput = true
	}
	if err := os.Rename(stage, output); err != nil {
		if hadOutput {
			_ = os.Rename(prev, output)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	if hadOutput {
		if err := os.RemoveAll(prev); err != nil {
			slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
		}
	}
	return nil
}

// abort removes a staging directory after a failed build.
func abort(stage string) {
	if stage == "" {
		return
	}
	if err := os.RemoveAll(stage); err != nil {
		slog.Warn("Failed to remove staging directory", logfields.Path(stage), logfields.Error(err))
	}
}
