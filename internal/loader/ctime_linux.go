//go:build linux

package loader

import (
	"os"
	"syscall"
	"time"
)

// createdAt returns the inode change time, falling back to the modification time.
func createdAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return info.ModTime()
}
