package compiler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/caarlos0/log"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// DefaultTimeout bounds a single compile
const DefaultTimeout = 10 * time.Minute

// Commander interface for testing
type Commander interface {
	Run() error
}

// CommandBuilder compiles build scripts into Go plugins. Include and link
// configuration from the build-time context reaches cgo through
// CGO_CFLAGS and CGO_LDFLAGS.
type CommandBuilder struct {
	// GoPath is the go binary
	GoPath string

	// Timeout bounds each compile. Zero means DefaultTimeout.
	Timeout time.Duration

	// Verbose prints the command before running it
	Verbose bool

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewCommandBuilder creates a new command builder
func NewCommandBuilder(goPath string, timeout time.Duration) *CommandBuilder {
	if goPath == "" {
		goPath = "go"
	}

	return &CommandBuilder{
		GoPath:  goPath,
		Timeout: timeout,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// BuildCommandArgs builds the go command arguments for a request. Every
// package gets its own plugin path; the runtime refuses to load two plugins
// with the same one. Scripts are built with -mod=mod so a freshly
// scaffolded project without a go.sum still resolves.
func (cb *CommandBuilder) BuildCommandArgs(req Request) []string {
	return []string{
		"build",
		"-mod=mod",
		"-buildmode=plugin",
		"-ldflags=-pluginpath=kiln/" + req.Package,
		"-o", req.Output,
		req.Entry,
	}
}

// BuildEnv returns the environment additions carrying the context's include
// and link configuration
func (cb *CommandBuilder) BuildEnv(c *kiln.Context) []string {
	var cflags, ldflags []string

	for _, dir := range c.IncludedDirectories.Items() {
		cflags = append(cflags, quoteFlag("-I"+dir))
	}

	for _, dir := range c.LinkedDirectories.Items() {
		ldflags = append(ldflags, quoteFlag("-L"+dir))
	}

	for _, lib := range c.LinkedLibraries.Items() {
		ldflags = append(ldflags, quoteFlag("-l"+lib))
	}

	return []string{
		"CGO_ENABLED=1",
		"CGO_CFLAGS=" + joinFlags(os.Getenv("CGO_CFLAGS"), cflags),
		"CGO_LDFLAGS=" + joinFlags(os.Getenv("CGO_LDFLAGS"), ldflags),
	}
}

// Compile builds the request's entry into a plugin at req.Output
func (cb *CommandBuilder) Compile(ctx context.Context, req Request) (string, error) {
	timeout := cb.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := cb.BuildCommandArgs(req)
	env := cb.BuildEnv(req.Context)

	if cb.Verbose {
		cb.PrintBuildInfo(req, env, args)
	}

	c := cb.execCommand(ctx, cb.GoPath, args...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Dir = req.Dir
		cmd.Env = append(os.Environ(), env...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := c.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", codes.Errorf(codes.ErrBuild, req.Package, "compile timed out after %s", timeout)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", codes.Errorf(codes.ErrBuild, req.Package, "%s exited with code %d", cb.GoPath, exitErr.ExitCode())
		}

		return "", codes.New(codes.ErrBuild, req.Package, err)
	}

	return req.Output, nil
}

// PrintBuildInfo logs the command about to run
func (cb *CommandBuilder) PrintBuildInfo(req Request, env, args []string) {
	log.WithField("package", req.Package).
		WithField("dir", req.Dir).
		WithField("env", strings.Join(env, " ")).
		Debugf("%s %s", cb.GoPath, strings.Join(args, " "))
}

func quoteFlag(flag string) string {
	if strings.ContainsAny(flag, " \t") {
		return "'" + flag + "'"
	}

	return flag
}

func joinFlags(existing string, flags []string) string {
	if existing = strings.TrimSpace(existing); existing != "" {
		flags = append([]string{existing}, flags...)
	}

	return strings.Join(flags, " ")
}
