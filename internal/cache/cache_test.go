package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", LedgerFile)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, path)

	ledger, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), LedgerFile)

	store, err := Open(path)
	require.NoError(t, err)

	now := time.Now()
	ledger := Ledger{}
	ledger.Stamp("db", now)
	ledger.Stamp("zlib", now.Add(-time.Hour))
	require.NoError(t, store.Save(ledger))
	require.NoError(t, store.Close())

	// Reopen to make sure it was persisted
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, ledger, loaded)
}

func TestStore_SaveReplacesEverything(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), LedgerFile))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(Ledger{"a": 1, "b": 2}))
	require.NoError(t, store.Save(Ledger{"c": 3}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Ledger{"c": 3}, loaded)
}

func TestStore_LockedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), LedgerFile)

	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()

	// bbolt holds an exclusive lock, the second open times out
	_, err = Open(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open cache database")
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestCopyArtifacts(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	files := map[string]string{
		"libdb.so":             "shared",
		"libdb.a":              "static",
		"libz.so.1":            "versioned",
		"sub/libnested.dylib":  "nested",
		"sub/readme.txt":       "skip",
		"app":                  "skip",
		"main.o":               "skip",
		".hidden.so":           "skip",
		".kiln/libbuild.so":    "skip",
		".kiln/packages/x/x.a": "skip",
	}

	for name, content := range files {
		path := filepath.Join(src, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	copied, err := CopyArtifacts(src, dst)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"libdb.so",
		"libdb.a",
		"libz.so.1",
		filepath.Join("sub", "libnested.dylib"),
	}, copied)

	assert.FileExists(t, filepath.Join(dst, "libdb.so"))
	assert.FileExists(t, filepath.Join(dst, "sub", "libnested.dylib"))
	assert.NoFileExists(t, filepath.Join(dst, "sub", "readme.txt"))
	assert.NoFileExists(t, filepath.Join(dst, "app"))
	assert.NoFileExists(t, filepath.Join(dst, ".hidden.so"))
	assert.NoDirExists(t, filepath.Join(dst, ".kiln"))

	data, err := os.ReadFile(filepath.Join(dst, "libdb.a"))
	require.NoError(t, err)
	assert.Equal(t, "static", string(data))
}

func TestCopyArtifacts_MissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")

	copied, err := CopyArtifacts(filepath.Join(t.TempDir(), "missing"), dst)
	require.NoError(t, err)
	assert.Empty(t, copied)
}

func TestIsLibrary(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"libdb.so", true},
		{"libdb.so.1.2", true},
		{"libdb.a", true},
		{"libdb.dylib", true},
		{"db.dll", true},
		{"db.lib", true},
		{"db.exe", false},
		{"db", false},
		{"db.o", false},
		{"db.h", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLibrary(tt.name))
		})
	}
}
