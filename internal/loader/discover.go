package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/outreach/internal/config"
)

// ErrNoInputFound is matched by errors.Is for every NoInputFoundError.
var ErrNoInputFound = errors.New("no input file found")

// NoInputFoundError reports that discovery matched zero files.
// It is the only condition that aborts a pipeline run before any transform.
type NoInputFoundError struct {
	Pattern string
}

func (e *NoInputFoundError) Error() string {
	return fmt.Sprintf("no input file matches %q", e.Pattern)
}

// Is makes errors.Is(err, ErrNoInputFound) succeed.
func (e *NoInputFoundError) Is(target error) bool {
	return target == ErrNoInputFound
}

// DiscoveryPattern builds the glob used to locate exports:
// data_dir/input_dirname/website_data_file_pattern.
func DiscoveryPattern(opts config.Options) string {
	dataDir, _ := opts.String(config.KeyDataDir)
	inputDir, _ := opts.String(config.KeyInputDirname)
	pattern, _ := opts.String(config.KeyFilePattern)
	return filepath.Join(dataDir, inputDir, pattern)
}

// Discover returns the most recently created file matching the discovery
// pattern. Directories are ignored. Ties keep the first match in glob order.
func Discover(opts config.Options) (string, error) {
	pattern := DiscoveryPattern(opts)

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid discovery pattern %q: %w", pattern, err)
	}

	var (
		selected string
		newest   time.Time
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		created := createdAt(info)
		if selected == "" || created.After(newest) {
			selected = path
			newest = created
		}
	}

	if selected == "" {
		return "", &NoInputFoundError{Pattern: pattern}
	}
	return selected, nil
}
