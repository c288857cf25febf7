package fetch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/manifest"
)

func TestReference(t *testing.T) {
	tests := []struct {
		version string
		want    plumbing.ReferenceName
	}{
		{"", ""},
		{"latest", ""},
		{"*", ""},
		{"1.2.0", "refs/tags/v1.2.0"},
		{"v1.2.0", "refs/tags/v1.2.0"},
		{"2.0", "refs/tags/v2.0"},
		{"1.0.0-rc.1", "refs/tags/v1.0.0-rc.1"},
		{"main", "refs/heads/main"},
		{"feature/x", "refs/heads/feature/x"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, Reference(tt.version))
		})
	}
}

func TestMaterialize_LocalDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "include"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "kiln.toml"), []byte("[package]\nname = \"db\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "include", "db.h"), []byte("#pragma once\n"), 0o644))

	dest := filepath.Join(t.TempDir(), "packages", "db")
	dep := manifest.Dependency{Name: "db", Source: src, Version: "1.0.0", Target: manifest.Main}

	m := NewMaterializer(time.Minute)
	require.NoError(t, m.Materialize(context.Background(), dep, dest))

	assert.FileExists(t, filepath.Join(dest, "kiln.toml"))
	assert.FileExists(t, filepath.Join(dest, "include", "db.h"))
}

func TestMaterialize_FileURL(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "kiln.toml"), []byte("[package]\nname = \"db\"\n"), 0o644))

	dest := filepath.Join(t.TempDir(), "db")
	dep := manifest.Dependency{Name: "db", Source: "file://" + src, Version: "latest", Target: manifest.Main}

	require.NoError(t, NewMaterializer(0).Materialize(context.Background(), dep, dest))
	assert.FileExists(t, filepath.Join(dest, "kiln.toml"))
}

func TestMaterialize_Idempotent(t *testing.T) {
	dest := t.TempDir()
	marker := filepath.Join(dest, "marker")
	require.NoError(t, os.WriteFile(marker, []byte("keep"), 0o644))

	// The source does not exist, but the destination is already populated
	dep := manifest.Dependency{Name: "db", Source: "/does/not/exist", Version: "1", Target: manifest.Main}
	require.NoError(t, NewMaterializer(time.Minute).Materialize(context.Background(), dep, dest))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestMaterialize_FailureCleansUp(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "db")
	dep := manifest.Dependency{Name: "db", Source: filepath.Join(t.TempDir(), "missing-repo"), Version: "1.0.0", Target: manifest.Main}

	err := NewMaterializer(30 * time.Second).Materialize(context.Background(), dep, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrFetch))
	assert.Equal(t, codes.FetchFailure, codes.ExitCode(err))
	assert.NoDirExists(t, dest)
}

func TestMaterialize_GitTag(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	src := t.TempDir()

	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "kiln", Email: "kiln@example.com", When: time.Now()}

	require.NoError(t, os.WriteFile(filepath.Join(src, "kiln.toml"), []byte("[package]\nname = \"db\"\nversion = \"1.0.0\"\n"), 0o644))
	_, err = wt.Add("kiln.toml")
	require.NoError(t, err)

	first, err := wt.Commit("release 1.0.0", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	_, err = repo.CreateTag("v1.0.0", first, nil)
	require.NoError(t, err)

	// A later commit on the default branch
	require.NoError(t, os.WriteFile(filepath.Join(src, "kiln.toml"), []byte("[package]\nname = \"db\"\nversion = \"2.0.0\"\n"), 0o644))
	_, err = wt.Add("kiln.toml")
	require.NoError(t, err)

	_, err = wt.Commit("work in progress", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "db")
	dep := manifest.Dependency{Name: "db", Source: src, Version: "1.0.0", Target: manifest.Main}
	require.NoError(t, NewMaterializer(time.Minute).Materialize(context.Background(), dep, dest))

	m, err := manifest.Read(filepath.Join(dest, "kiln.toml"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", m.Package.Version)
}
