// Package manifest reads a package's kiln.toml descriptor and a project's
// kiln.lock dependency list.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Norgate-AV/kiln/internal/codes"
)

// Manifest is the content of kiln.toml
type Manifest struct {
	Package Package `toml:"package"`

	// Run maps run target names to command lines
	Run map[string]string `toml:"run,omitempty"`
}

// Package describes what a package exposes to its dependents
type Package struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`

	// Include is a delimiter-separated list of header directories, relative
	// to the package root
	Include string `toml:"include,omitempty"`

	// Link is a delimiter-separated list of library names
	Link string `toml:"link,omitempty"`
}

// Parse decodes a manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, codes.New(codes.ErrConfig, "", fmt.Errorf("invalid manifest: %w", err))
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Read reads and decodes the manifest at path
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, codes.Errorf(codes.ErrConfig, "", "no %s found in %s", filepath.Base(path), filepath.Dir(path))
		}

		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Validate checks required fields
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Package.Name) == "" {
		return codes.Errorf(codes.ErrConfig, "", "manifest is missing package.name")
	}

	return nil
}

// Includes returns the declared include directories resolved against root
func (m *Manifest) Includes(root string) []string {
	dirs := Split(m.Package.Include)
	for i, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dirs[i] = filepath.Join(root, dir)
		}
	}

	return dirs
}

// Links returns the declared library names
func (m *Manifest) Links() []string {
	return Split(m.Package.Link)
}

// Split breaks a comma or semicolon separated list into trimmed, non-empty
// items
func Split(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';'
	})

	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}

	return items
}
