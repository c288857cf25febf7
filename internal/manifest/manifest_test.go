package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/kiln/internal/codes"
)

func TestParse(t *testing.T) {
	data := []byte(`
[package]
name = "db"
version = "1.0.0"
description = "embedded database"
include = "include, third_party/include"
link = "db;pthread"

[run]
server = "build/server --port 8080"
`)

	m, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "db", m.Package.Name)
	assert.Equal(t, "1.0.0", m.Package.Version)
	assert.Equal(t, "embedded database", m.Package.Description)
	assert.Equal(t, []string{"db", "pthread"}, m.Links())
	assert.Equal(t, "build/server --port 8080", m.Run["server"])

	root := filepath.FromSlash("/deps/db")
	assert.Equal(t, []string{
		filepath.Join(root, "include"),
		filepath.Join(root, "third_party/include"),
	}, m.Includes(root))
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte(`
[package]
version = "1.0.0"
`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrConfig))
	assert.Contains(t, err.Error(), "package.name")
}

func TestParse_InvalidTOML(t *testing.T) {
	_, err := Parse([]byte(`[package`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrConfig))
}

func TestRead_NotFound(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "kiln.toml"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrConfig))
	assert.Contains(t, err.Error(), "no kiln.toml found")
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiln.toml")
	err := os.WriteFile(path, []byte("[package]\nname = \"app\"\n"), 0o644)
	require.NoError(t, err)

	m, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "app", m.Package.Name)
	assert.Empty(t, m.Links())
	assert.Empty(t, m.Includes("/app"))
}

func TestIncludes_AbsoluteKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "include")
	m := &Manifest{Package: Package{Name: "x", Include: abs}}

	assert.Equal(t, []string{abs}, m.Includes("/elsewhere"))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"db", []string{"db"}},
		{"a,b", []string{"a", "b"}},
		{"a; b ;c", []string{"a", "b", "c"}},
		{" , ;", []string{}},
		{"path with space,x", []string{"path with space", "x"}},
	}

	for _, test := range tests {
		result := Split(test.input)
		assert.Equal(t, test.expected, result, "Split(%q)", test.input)
	}
}
