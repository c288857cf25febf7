package cache

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// NeverModified is what LatestModTime returns for a tree without files. It
// sorts below every real timestamp.
const NeverModified int64 = math.MinInt64

// Ledger maps package names to the Unix nanosecond time of their last
// successful build
type Ledger map[string]int64

// Get returns the recorded build time of name
func (l Ledger) Get(name string) (int64, bool) {
	ts, ok := l[name]
	return ts, ok
}

// Stamp records a successful build of name at t
func (l Ledger) Stamp(name string, t time.Time) {
	l[name] = t.UnixNano()
}

// IsStale reports whether name must be rebuilt given the latest
// modification time found under its root
func (l Ledger) IsStale(name string, latest int64) bool {
	ts, ok := l[name]
	if !ok {
		return true
	}

	return ts < latest
}

// LatestModTime returns the newest modification time, in Unix nanoseconds,
// of any regular file under root. Ledger databases are skipped so a package
// never invalidates itself by recording its own build.
func LatestModTime(fsys afero.Fs, root string) (int64, error) {
	latest := NeverModified

	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() || filepath.Base(path) == LedgerFile {
			return nil
		}

		if ts := info.ModTime().UnixNano(); ts > latest {
			latest = ts
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NeverModified, nil
		}

		return 0, err
	}

	return latest, nil
}

// IsStale reports whether the package name has changed since its last
// recorded build. Every file under each of roots counts: the package's own
// root and the roots of whatever it depends on.
func IsStale(fsys afero.Fs, l Ledger, name string, roots ...string) (bool, error) {
	if _, ok := l.Get(name); !ok {
		return true, nil
	}

	latest := NeverModified
	for _, root := range roots {
		ts, err := LatestModTime(fsys, root)
		if err != nil {
			return false, err
		}

		latest = max(latest, ts)
	}

	return l.IsStale(name, latest), nil
}
