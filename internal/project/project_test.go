package project

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mod/modfile"

	"github.com/Norgate-AV/kiln/internal/manifest"
)

func TestLayout(t *testing.T) {
	root := t.TempDir()

	l, err := NewLayout(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "kiln.toml"), l.Manifest())
	assert.Equal(t, filepath.Join(root, "kiln.lock"), l.Lock())
	assert.Equal(t, filepath.Join(root, "build.go"), l.Script())
	assert.Equal(t, filepath.Join(root, "build"), l.BuildDir())
	assert.Equal(t, filepath.Join(root, "build", ".kiln"), l.WorkDir())
	assert.Equal(t, filepath.Join(root, "build", ".kiln", "packages", "db"), l.PackageDir("db"))
	assert.Equal(t, filepath.Join(root, "build", ".kiln", "ledger.db"), l.Ledger())
	assert.Equal(t, filepath.Join(root, "build", ".kiln", "libbuild.so"), l.Artifact())
}

func TestLayout_OutputDir(t *testing.T) {
	l := Layout{Root: "/p"}

	assert.Equal(t, l.BuildDir(), l.OutputDir(manifest.Main))
	assert.Equal(t, l.WorkDir(), l.OutputDir(manifest.BuildTime))
}

func TestNewLayout_Relative(t *testing.T) {
	l, err := NewLayout(".")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(l.Root))
}

func TestInit(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work/hello"

	created, err := Init(fs, root, InitOptions{KilnVersion: "v1.4.0"})
	require.NoError(t, err)
	assert.Contains(t, created, ManifestFile)
	assert.Contains(t, created, LockFile)
	assert.Contains(t, created, ScriptFile)
	assert.Contains(t, created, ModuleFile)

	data, err := afero.ReadFile(fs, filepath.Join(root, ManifestFile))
	require.NoError(t, err)

	m, err := manifest.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Package.Name)
	assert.Equal(t, []string{filepath.Join(root, "include")}, m.Includes(root))
	assert.Equal(t, "build/hello", m.Run["hello"])

	script, err := afero.ReadFile(fs, filepath.Join(root, ScriptFile))
	require.NoError(t, err)
	assert.Contains(t, string(script), "func Build(ctx *kiln.Context) int")
	assert.Contains(t, string(script), `"hello"`)

	exists, err := afero.DirExists(fs, filepath.Join(root, "include"))
	require.NoError(t, err)
	assert.True(t, exists)

	data, err = afero.ReadFile(fs, filepath.Join(root, ModuleFile))
	require.NoError(t, err)

	mod, err := modfile.Parse(ModuleFile, data, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", mod.Module.Mod.Path)
	require.Len(t, mod.Require, 1)
	assert.Equal(t, KilnModule, mod.Require[0].Mod.Path)
	assert.Equal(t, "v1.4.0", mod.Require[0].Mod.Version)
	assert.Empty(t, mod.Replace)
}

func TestModFile_LocalSource(t *testing.T) {
	data, err := ModFile("app", InitOptions{KilnVersion: "dev", KilnSource: "/src/kiln"})
	require.NoError(t, err)

	mod, err := modfile.Parse(ModuleFile, data, nil)
	require.NoError(t, err)
	assert.Equal(t, GoVersion, mod.Go.Version)

	require.Len(t, mod.Require, 1)
	assert.Equal(t, "v0.0.0", mod.Require[0].Mod.Version, "development builds have no release")

	require.Len(t, mod.Replace, 1)
	assert.Equal(t, KilnModule, mod.Replace[0].Old.Path)
	assert.Equal(t, "/src/kiln", mod.Replace[0].New.Path)
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/work/app"

	err := afero.WriteFile(fs, filepath.Join(root, ScriptFile), []byte("package main"), 0o644)
	require.NoError(t, err)

	_, err = Init(fs, root, InitOptions{Name: "app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build.go already exists")

	// Nothing else was written
	exists, err := afero.Exists(fs, filepath.Join(root, ManifestFile))
	require.NoError(t, err)
	assert.False(t, exists)
}
