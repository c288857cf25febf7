package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Norgate-AV/kiln/internal/codes"
)

// Target is the context a dependency is routed into
type Target string

const (
	// Main dependencies are handed to the running build script
	Main Target = "main"

	// BuildTime dependencies are used to compile the build script itself
	BuildTime Target = "build"
)

// ParseTarget parses a target classification
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case Main, BuildTime:
		return t, nil
	default:
		return "", fmt.Errorf("invalid target %q (want %q or %q)", s, Main, BuildTime)
	}
}

// Dependency is one lock entry
type Dependency struct {
	Name    string `toml:"name"`
	Source  string `toml:"source"`
	Version string `toml:"version"`
	Target  Target `toml:"target"`

	// NoBuild dependencies are only included, never compiled or linked
	NoBuild bool `toml:"no_build,omitempty"`
}

// Validate checks that every required field is present
func (d Dependency) Validate() error {
	var missing []string

	if d.Name == "" {
		missing = append(missing, "name")
	}

	if d.Source == "" {
		missing = append(missing, "source")
	}

	if d.Version == "" {
		missing = append(missing, "version")
	}

	if d.Target == "" {
		missing = append(missing, "target")
	}

	if len(missing) > 0 {
		return codes.Errorf(codes.ErrConfig, d.Name, "lock entry is missing %s", strings.Join(missing, ", "))
	}

	if _, err := ParseTarget(string(d.Target)); err != nil {
		return codes.New(codes.ErrConfig, d.Name, err)
	}

	return nil
}

// Lock is the content of kiln.lock. Entries keep their declared order,
// which decides the final link order.
type Lock struct {
	Dependencies []Dependency `toml:"dependency"`
}

// ParseLock decodes and validates a lock file
func ParseLock(data []byte) (*Lock, error) {
	var l Lock
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, codes.New(codes.ErrConfig, "", fmt.Errorf("invalid lock file: %w", err))
	}

	for i := range l.Dependencies {
		l.Dependencies[i].Target = Target(strings.ToLower(string(l.Dependencies[i].Target)))
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}

	return &l, nil
}

// ReadLock reads the lock file at path. A missing lock file is an empty one.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Lock{}, nil
		}

		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	l, err := ParseLock(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return l, nil
}

// WriteLock encodes l to path
func WriteLock(path string, l *Lock) error {
	data, err := toml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode lock file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	return nil
}

// Validate checks every entry
func (l *Lock) Validate() error {
	for _, d := range l.Dependencies {
		if err := d.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Upsert replaces every entry named d.Name with d, or appends d if there is none
func (l *Lock) Upsert(d Dependency) {
	found := false
	for i := range l.Dependencies {
		if l.Dependencies[i].Name == d.Name {
			l.Dependencies[i] = d
			found = true
		}
	}

	if !found {
		l.Dependencies = append(l.Dependencies, d)
	}
}
