//go:build !linux && !darwin && !windows

package content

import (
	"os"
	"time"
)

// CreatedAt returns the modification time; this platform exposes no birth time.
func CreatedAt(info os.FileInfo) time.Time {
	return info.ModTime()
}
