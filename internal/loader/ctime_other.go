//go:build !linux && !darwin

package loader

import (
	"os"
	"time"
)

// createdAt falls back to the modification time where no change time is exposed.
func createdAt(info os.FileInfo) time.Time {
	return info.ModTime()
}
