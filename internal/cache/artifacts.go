package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
)

// LibraryExtensions are the file extensions copied out of a built dependency
var LibraryExtensions = []string{".so", ".a", ".dylib", ".dll", ".lib"}

// IsLibrary reports whether name looks like a library artifact. Versioned
// shared objects such as libz.so.1 count.
func IsLibrary(name string) bool {
	for _, ext := range LibraryExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return strings.Contains(name, ".so.")
}

// CopyArtifacts copies library artifacts from sourceDir into destDir,
// keeping their relative paths. Hidden files and directories are skipped.
// It returns the copied paths relative to sourceDir; a missing sourceDir
// copies nothing.
func CopyArtifacts(sourceDir, destDir string) ([]string, error) {
	if _, err := os.Stat(sourceDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	var copied []string

	opts := copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: func(info os.FileInfo, src, dest string) (bool, error) {
			if src == sourceDir {
				return false, nil
			}

			if strings.HasPrefix(info.Name(), ".") {
				return true, nil
			}

			if info.IsDir() {
				return false, nil
			}

			if !IsLibrary(info.Name()) {
				return true, nil
			}

			rel, err := filepath.Rel(sourceDir, src)
			if err != nil {
				return false, err
			}

			copied = append(copied, rel)
			return false, nil
		},
	}

	if err := copy.Copy(sourceDir, destDir, opts); err != nil {
		return nil, fmt.Errorf("failed to copy artifacts: %w", err)
	}

	return copied, nil
}
