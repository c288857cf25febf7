// Package plugin loads a compiled build script and calls its entry point.
package plugin

import (
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/log"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// Module is a loaded artifact
type Module interface {
	// Lookup resolves an exported symbol
	Lookup(name string) (any, error)

	// Close releases the module
	Close() error
}

// Loader opens compiled artifacts
type Loader interface {
	Open(path string) (Module, error)
}

// Executor runs build script entry points. Calls are serialized because
// the working directory is switched to the project root for the duration
// of each call and that is process-wide state.
type Executor struct {
	loader Loader
	mu     sync.Mutex
}

// NewExecutor creates an executor loading artifacts through loader
func NewExecutor(loader Loader) *Executor {
	return &Executor{loader: loader}
}

// Invoke loads artifact, resolves symbol and calls it with c from inside
// root. The previous working directory is restored and the module closed on
// every return path. Load and lookup failures are codes.ErrLoad; a panic in
// the entry point is codes.ErrBuild.
func (e *Executor) Invoke(artifact, symbol, root string, c *kiln.Context) (status int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mod, err := e.loader.Open(artifact)
	if err != nil {
		return 0, codes.Errorf(codes.ErrLoad, "", "failed to load %s: %w", artifact, err)
	}

	defer func() {
		if err := mod.Close(); err != nil {
			log.WithError(err).WithField("artifact", artifact).Warn("failed to close module")
		}
	}()

	sym, err := mod.Lookup(symbol)
	if err != nil {
		return 0, codes.Errorf(codes.ErrLoad, "", "failed to resolve %s in %s: %w", symbol, artifact, err)
	}

	entry, ok := sym.(kiln.Entry)
	if !ok {
		return 0, codes.Errorf(codes.ErrLoad, "", "%s in %s has type %T, want %T", symbol, artifact, sym, kiln.Entry(nil))
	}

	prev, err := os.Getwd()
	if err != nil {
		return 0, fmt.Errorf("failed to get working directory: %w", err)
	}

	if err := os.Chdir(root); err != nil {
		return 0, fmt.Errorf("failed to enter %s: %w", root, err)
	}

	defer func() {
		if err := os.Chdir(prev); err != nil {
			log.WithError(err).WithField("dir", prev).Error("failed to restore working directory")
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			status, err = 0, codes.Errorf(codes.ErrBuild, "", "%s panicked: %v", symbol, r)
		}
	}()

	c.Root = root

	return entry(c), nil
}
