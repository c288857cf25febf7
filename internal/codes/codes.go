// Package codes defines the error kinds a build pass can fail with and the
// process exit codes they map to.
package codes

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure that aborts a pass wraps exactly one of these.
var (
	ErrConfig = errors.New("configuration error")
	ErrFetch  = errors.New("fetch error")
	ErrBuild  = errors.New("build error")
	ErrLoad   = errors.New("load error")
	ErrCycle  = errors.New("dependency cycle")
)

// Exit codes
const (
	Success        = 0
	GeneralFailure = 1
	ConfigFailure  = 2
	FetchFailure   = 3
	BuildFailure   = 4
	LoadFailure    = 5
	CycleFailure   = 6
)

// ExitCodes maps exit codes to their descriptions
var ExitCodes = map[int]string{
	Success:        "Success",
	GeneralFailure: "General failure",
	ConfigFailure:  "Invalid manifest, lock file or configuration",
	FetchFailure:   "Dependency could not be fetched",
	BuildFailure:   "Toolchain or build script failed",
	LoadFailure:    "Build script could not be loaded",
	CycleFailure:   "Circular dependency",
}

// Error is a failure of a given kind, optionally tied to a package
type Error struct {
	Kind    error
	Package string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Package != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Package)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// New wraps err as a failure of kind for pkg
func New(kind error, pkg string, err error) error {
	return &Error{Kind: kind, Package: pkg, Err: err}
}

// Errorf formats a failure of kind for pkg
func Errorf(kind error, pkg, format string, args ...any) error {
	return &Error{Kind: kind, Package: pkg, Err: fmt.Errorf(format, args...)}
}

// ExitCode returns the process exit code for err
func ExitCode(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrConfig):
		return ConfigFailure
	case errors.Is(err, ErrFetch):
		return FetchFailure
	case errors.Is(err, ErrBuild):
		return BuildFailure
	case errors.Is(err, ErrLoad):
		return LoadFailure
	case errors.Is(err, ErrCycle):
		return CycleFailure
	default:
		return GeneralFailure
	}
}

// GetErrorMessage returns the description of an exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}
