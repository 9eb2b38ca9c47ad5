//go:build darwin

package content

import (
	"os"
	"syscall"
	"time"
)

// CreatedAt returns the file birth time, falling back to the modification time.
func CreatedAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	}
	return info.ModTime()
}
