package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidRoot indicates the scan root does not exist or is not a
// directory.
var ErrInvalidRoot = errors.New("invalid project root")

// Discover walks the tree under root and returns every file whose name
// ends with suffix, sorted lexicographically. The match is
// case-sensitive. An empty result is valid; a missing root is not.
func Discover(root, suffix string) ([]string, error) {
	info, statErr := os.Stat(root)
	if statErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	var files []string

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		if strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, path)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("discover test files: %w", walkErr)
	}

	sort.Strings(files)

	return files, nil
}
