// Package compiler turns a project's build script into a loadable artifact.
package compiler

import (
	"context"

	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// Request is one compile: an entry source, the context it is compiled
// against and where the artifact goes
type Request struct {
	// Package names the project being compiled, for error reporting
	Package string

	// Dir is the directory the toolchain runs in
	Dir string

	// Entry is the build script source
	Entry string

	// Output is the artifact path
	Output string

	// Context carries include directories, library directories and libraries
	Context *kiln.Context
}

// Toolchain compiles a build script into a shared artifact and returns its
// path. Failures are codes.ErrBuild.
type Toolchain interface {
	Compile(ctx context.Context, req Request) (string, error)
}

var _ Toolchain = (*CommandBuilder)(nil)
