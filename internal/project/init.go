// Package project describes the on-disk layout of a kiln project and
// scaffolds new ones.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/Norgate-AV/kiln/internal/manifest"
)

const scriptTemplate = `package main

import (
	"context"
	"fmt"

	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// Build is called by kiln with the project's main context
func Build(ctx *kiln.Context) int {
	app := kiln.NewBinary(ctx, kiln.Executable, "src/main.cpp", %q)
	app.IncludeDirectory("include")

	if err := app.Compile(context.Background()); err != nil {
		fmt.Println(err)
		return 1
	}

	return 0
}
`

const sourceTemplate = `#include <iostream>

int main() {
    std::cout << "Hello from %s" << std::endl;
    return 0;
}
`

const (
	// ModuleFile is the Go module file that lets the build script import kiln
	ModuleFile = "go.mod"

	// KilnModule is the module path build scripts import
	KilnModule = "github.com/Norgate-AV/kiln"

	// GoVersion is the go directive written into scaffolded module files.
	// It must not be older than the one kiln itself requires.
	GoVersion = "1.25.2"
)

// InitOptions configure Init
type InitOptions struct {
	// Name of the package. Defaults to the base of root.
	Name string

	// KilnVersion is the kiln release the script's module requires. Anything
	// that is not a semantic version becomes v0.0.0.
	KilnVersion string

	// KilnSource, when set, replaces the kiln requirement with a local
	// checkout. Development builds of kiln have no release to require.
	KilnSource string
}

// ModFile renders the module file for a project named name
func ModFile(name string, opts InitOptions) ([]byte, error) {
	ver := opts.KilnVersion
	if !semver.IsValid(ver) {
		ver = "v0.0.0"
	}

	f := new(modfile.File)
	if err := f.AddModuleStmt(name); err != nil {
		return nil, err
	}

	if err := f.AddGoStmt(GoVersion); err != nil {
		return nil, err
	}

	if err := f.AddRequire(KilnModule, ver); err != nil {
		return nil, err
	}

	if opts.KilnSource != "" {
		if err := f.AddReplace(KilnModule, "", opts.KilnSource, ""); err != nil {
			return nil, err
		}
	}

	f.Cleanup()

	return modfile.Format(f.Syntax), nil
}

// Init scaffolds a project at root. Existing files are never overwritten;
// if any scaffold file already exists nothing is written.
func Init(fs afero.Fs, root string, opts InitOptions) ([]string, error) {
	name := opts.Name
	if name == "" {
		name = filepath.Base(root)
	}

	m := manifest.Manifest{
		Package: manifest.Package{
			Name:    name,
			Version: "0.1.0",
			Include: "include",
		},
		Run: map[string]string{
			name: filepath.ToSlash(filepath.Join("build", name)),
		},
	}

	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	mod, err := ModFile(name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode module file: %w", err)
	}

	files := []struct {
		path    string
		content string
	}{
		{ManifestFile, string(data)},
		{LockFile, ""},
		{ScriptFile, fmt.Sprintf(scriptTemplate, name)},
		{ModuleFile, string(mod)},
		{filepath.Join("src", "main.cpp"), fmt.Sprintf(sourceTemplate, name)},
		{filepath.Join("include", ".gitkeep"), ""},
	}

	for _, f := range files {
		exists, err := afero.Exists(fs, filepath.Join(root, f.path))
		if err != nil {
			return nil, err
		}

		if exists {
			return nil, fmt.Errorf("%s already exists", f.path)
		}
	}

	created := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(root, f.path)

		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return created, fmt.Errorf("failed to create directory: %w", err)
		}

		if err := afero.WriteFile(fs, path, []byte(f.content), os.FileMode(0o644)); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", f.path, err)
		}

		created = append(created, f.path)
	}

	return created, nil
}
