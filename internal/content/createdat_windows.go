//go:build windows

package content

import (
	"os"
	"syscall"
	"time"
)

// CreatedAt returns the file creation time, falling back to the modification time.
func CreatedAt(info os.FileInfo) time.Time {
	if attr, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, attr.CreationTime.Nanoseconds())
	}
	return info.ModTime()
}
