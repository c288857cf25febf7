// Package fetch materializes dependency sources on local disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-version"
	"github.com/otiai10/copy"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/manifest"
)

// DefaultTimeout bounds a single fetch
const DefaultTimeout = 5 * time.Minute

// Materializer places dependency sources on disk. Sources are either git
// URLs, cloned at the dependency's version, or plain local directories,
// copied as they are.
type Materializer struct {
	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// Progress receives git progress output when set
	Progress io.Writer
}

// NewMaterializer creates a materializer with the given fetch timeout
func NewMaterializer(timeout time.Duration) *Materializer {
	return &Materializer{Timeout: timeout}
}

// Materialize fetches dep into dest unless dest is already populated.
// A failed fetch leaves nothing behind at dest.
func (m *Materializer) Materialize(ctx context.Context, dep manifest.Dependency, dest string) error {
	if populated(dest) {
		log.WithField("package", dep.Name).Debug("already materialized")
		return nil
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	if src, ok := localDirectory(dep.Source); ok {
		log.WithField("package", dep.Name).WithField("path", src).Info("copying")
		err = copy.Copy(src, dest)
	} else {
		log.WithField("package", dep.Name).WithField("url", dep.Source).WithField("version", dep.Version).Info("cloning")
		err = m.clone(ctx, dep, dest)
	}

	if err != nil {
		_ = os.RemoveAll(dest)
		return codes.New(codes.ErrFetch, dep.Name, err)
	}

	return nil
}

func (m *Materializer) clone(ctx context.Context, dep manifest.Dependency, dest string) error {
	opts := &git.CloneOptions{
		URL:          dep.Source,
		Depth:        1,
		SingleBranch: true,
		Progress:     m.Progress,
	}

	if ref := Reference(dep.Version); ref != "" {
		opts.ReferenceName = ref
	}

	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out cloning %s", dep.Source)
		}

		return fmt.Errorf("failed to clone %s: %w", dep.Source, err)
	}

	return nil
}

// Reference maps a dependency version to the git reference to clone. An
// empty result means the remote's default branch.
//
//	"", "latest", "*"  -> default branch
//	"1.2.0", "v1.2.0"  -> tag v1.2.0
//	anything else      -> branch of that name
func Reference(v string) plumbing.ReferenceName {
	v = strings.TrimSpace(v)

	switch v {
	case "", "latest", "*":
		return ""
	}

	if _, err := version.NewVersion(v); err == nil {
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}

		return plumbing.NewTagReferenceName(v)
	}

	return plumbing.NewBranchReferenceName(v)
}

// localDirectory reports whether source is a local directory that should be
// copied instead of cloned. Local git repositories are cloned so that their
// version is honored.
func localDirectory(source string) (string, bool) {
	path := strings.TrimPrefix(source, "file://")

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return "", false
	}

	return path, true
}

func populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	return len(entries) > 0
}
