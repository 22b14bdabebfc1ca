//go:build darwin

package loader

import (
	"os"
	"syscall"
	"time"
)

// createdAt returns the inode change time, falling back to the modification time.
func createdAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctimespec.Sec), int64(st.Ctimespec.Nsec))
	}
	return info.ModTime()
}
