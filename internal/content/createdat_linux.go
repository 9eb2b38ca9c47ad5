//go:build linux

package content

import (
	"os"
	"syscall"
	"time"
)

// CreatedAt returns the inode change time (ctime). Falls back to the
// modification time.
func CreatedAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
