package project

import (
	"path/filepath"

	"github.com/Norgate-AV/kiln/internal/cache"
	"github.com/Norgate-AV/kiln/internal/manifest"
	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// File and directory names inside a project
const (
	ManifestFile  = "kiln.toml"
	LockFile      = "kiln.lock"
	ScriptFile    = "build.go"
	WorkDirName   = ".kiln"
	PackagesDir   = "packages"
	ArtifactAlias = "build"
)

// Layout is where a project keeps its files. All paths are absolute.
type Layout struct {
	Root string
}

// NewLayout returns the layout of the project at root
func NewLayout(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}

	return Layout{Root: abs}, nil
}

func (l Layout) Manifest() string { return filepath.Join(l.Root, ManifestFile) }
func (l Layout) Lock() string     { return filepath.Join(l.Root, LockFile) }
func (l Layout) Script() string   { return filepath.Join(l.Root, ScriptFile) }

// BuildDir is the main output area
func (l Layout) BuildDir() string {
	return filepath.Join(l.Root, kiln.OutputDir)
}

// WorkDir is kiln's own working output area. Build-time artifacts and the
// compiled build script live here.
func (l Layout) WorkDir() string {
	return filepath.Join(l.BuildDir(), WorkDirName)
}

// PackagesDir is where dependencies are materialized
func (l Layout) PackagesDir() string {
	return filepath.Join(l.WorkDir(), PackagesDir)
}

// PackageDir is the materialized root of the named dependency
func (l Layout) PackageDir(name string) string {
	return filepath.Join(l.PackagesDir(), name)
}

// Ledger is the cache ledger database
func (l Layout) Ledger() string {
	return filepath.Join(l.WorkDir(), cache.LedgerFile)
}

// Artifact is the compiled build script. Go plugins use .so on every
// platform that supports them.
func (l Layout) Artifact() string {
	return filepath.Join(l.WorkDir(), "lib"+ArtifactAlias+".so")
}

// OutputDir is the output area dependencies of the given target are copied to
func (l Layout) OutputDir(target manifest.Target) string {
	if target == manifest.BuildTime {
		return l.WorkDir()
	}

	return l.BuildDir()
}
