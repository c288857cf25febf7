package kiln

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// OutputDir is the directory, relative to the project root, that binaries
// are written to
const OutputDir = "build"

// Kind is the type of artifact a Binary produces
type Kind int

const (
	Shared Kind = iota
	Static
	Executable
)

// kindInfo describes how one artifact kind is named and compiled
type kindInfo struct {
	name   string
	prefix string
	ext    map[string]string // GOOS -> extension, "" key is the fallback
	flags  []string
}

var kinds = map[Kind]kindInfo{
	Shared: {
		name:   "shared",
		prefix: "lib",
		ext:    map[string]string{"windows": ".dll", "darwin": ".dylib", "": ".so"},
		flags:  []string{"-shared"},
	},
	Static: {
		name:   "static",
		prefix: "lib",
		ext:    map[string]string{"windows": ".lib", "": ".a"},
		flags:  []string{"-c"},
	},
	Executable: {
		name:   "executable",
		prefix: "",
		ext:    map[string]string{"windows": ".exe", "": ""},
	},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// FileName returns the artifact file name for alias on the given GOOS
func (k Kind) FileName(alias, goos string) string {
	info := kinds[k]

	ext, ok := info.ext[goos]
	if !ok {
		ext = info.ext[""]
	}

	return info.prefix + alias + ext
}

// Compiler holds the C/C++ compiler and the flags kiln passes to it
type Compiler struct {
	Alias                string
	Archiver             string
	OutputFlag           string
	IncludeDirectoryFlag string
	LinkDirectoryFlag    string
	LinkLibraryFlag      string
	Extra                []string
}

// DefaultCompiler returns the g++ flag set
func DefaultCompiler() Compiler {
	return Compiler{
		Alias:                "g++",
		Archiver:             "ar",
		OutputFlag:           "-o",
		IncludeDirectoryFlag: "-I",
		LinkDirectoryFlag:    "-L",
		LinkLibraryFlag:      "-l",
		Extra:                []string{"-fPIC", "-Wall", "-Wl,-rpath,$ORIGIN", "-std=c++20"},
	}
}

// Binary is one native artifact compiled from a single entry source
type Binary struct {
	Kind     Kind
	Entry    string
	Alias    string
	Compiler Compiler

	// Output is the directory the artifact is written to. Defaults to
	// <root>/build.
	Output string

	root                string
	linkedLibraries     Set
	linkedDirectories   Set
	includedDirectories Set
}

// NewBinary creates a binary seeded with the context's include and link
// configuration
func NewBinary(ctx *Context, kind Kind, entry, alias string) *Binary {
	return &Binary{
		Kind:                kind,
		Entry:               entry,
		Alias:               alias,
		Compiler:            DefaultCompiler(),
		Output:              filepath.Join(ctx.Root, OutputDir),
		root:                ctx.Root,
		linkedLibraries:     ctx.LinkedLibraries.Clone(),
		linkedDirectories:   ctx.LinkedDirectories.Clone(),
		includedDirectories: ctx.IncludedDirectories.Clone(),
	}
}

// IncludeDirectory adds a header search path, relative to the project root
// unless absolute
func (b *Binary) IncludeDirectory(path string) {
	b.includedDirectories.Add(b.abs(path))
}

// LinkDirectory adds a library search path, relative to the project root
// unless absolute
func (b *Binary) LinkDirectory(path string) {
	b.linkedDirectories.Add(b.abs(path))
}

// LinkLibrary adds a library to link against
func (b *Binary) LinkLibrary(alias string) {
	b.linkedLibraries.Add(alias)
}

// Path returns where the artifact is written
func (b *Binary) Path() string {
	return filepath.Join(b.Output, b.Kind.FileName(b.Alias, runtime.GOOS))
}

// Commands returns the command lines that produce the artifact. Static
// libraries take two: compile to an object, then archive it.
func (b *Binary) Commands() [][]string {
	out := b.Path()
	if b.Kind == Static {
		obj := strings.TrimSuffix(out, filepath.Ext(out)) + ".o"
		return [][]string{
			b.compileArgs(obj),
			{b.Compiler.Archiver, "rcs", out, obj},
		}
	}

	return [][]string{b.compileArgs(out)}
}

func (b *Binary) compileArgs(out string) []string {
	c := b.Compiler

	args := []string{c.Alias, b.abs(b.Entry), c.OutputFlag, out}
	args = append(args, kinds[b.Kind].flags...)
	args = append(args, c.Extra...)

	for _, dir := range b.includedDirectories.Items() {
		args = append(args, c.IncludeDirectoryFlag+dir)
	}

	// Static objects are not linked
	if b.Kind == Static {
		return args
	}

	for _, dir := range b.linkedDirectories.Items() {
		args = append(args, c.LinkDirectoryFlag+dir)
	}

	for _, lib := range b.linkedLibraries.Items() {
		args = append(args, c.LinkLibraryFlag+lib)
	}

	return args
}

// Compile runs the commands that produce the artifact
func (b *Binary) Compile(ctx context.Context) error {
	if err := os.MkdirAll(b.Output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, args := range b.Commands() {
		if err := execCommand(ctx, b.root, args[0], args[1:]...).Run(); err != nil {
			return fmt.Errorf("failed to compile %s %s: %w", b.Kind, b.Alias, err)
		}
	}

	return nil
}

func (b *Binary) abs(path string) string {
	if filepath.IsAbs(path) || b.root == "" {
		return path
	}

	return filepath.Join(b.root, path)
}

// Commander interface for testing
type Commander interface {
	Run() error
}

var execCommand = func(ctx context.Context, dir, name string, args ...string) Commander {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd
}
