// Package kiln is the API imported by project build scripts.
//
// A build script is a Go file (build.go) in package main that exports a
// function named Build with the Entry signature. kiln compiles it as a plugin,
// loads it and calls Build with the main Context assembled from the project's
// dependencies:
//
//	func Build(ctx *kiln.Context) int {
//		lib := kiln.NewBinary(ctx, kiln.Shared, "src/db.cpp", "db")
//		lib.IncludeDirectory("include")
//
//		if err := lib.Compile(context.Background()); err != nil {
//			return 1
//		}
//
//		return 0
//	}
//
// The plugin and the kiln binary must be built against the same version of
// this package; Go refuses to load a plugin whose package versions differ.
package kiln

import "slices"

// EntrySymbol is the name of the function kiln calls in a build script
const EntrySymbol = "Build"

// Entry is the signature a build script's entry point must have
type Entry = func(ctx *Context) int

// Set is a string set that keeps insertion order. The zero value is empty
// and ready to use.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet creates a set holding items in order, dropping duplicates
func NewSet(items ...string) Set {
	var s Set
	s.Add(items...)
	return s
}

// Add appends items that are not already present
func (s *Set) Add(items ...string) {
	if s.index == nil {
		s.index = make(map[string]struct{}, len(items))
	}

	for _, item := range items {
		if _, ok := s.index[item]; ok {
			continue
		}

		s.index[item] = struct{}{}
		s.items = append(s.items, item)
	}
}

// Reset replaces the contents of the set with items
func (s *Set) Reset(items ...string) {
	s.items = nil
	s.index = nil
	s.Add(items...)
}

// Contains reports whether item is in the set
func (s *Set) Contains(item string) bool {
	_, ok := s.index[item]
	return ok
}

// Items returns a copy of the set's items in insertion order
func (s *Set) Items() []string {
	return slices.Clone(s.items)
}

// Len returns the number of items
func (s *Set) Len() int {
	return len(s.items)
}

// Clone returns an independent copy of the set
func (s *Set) Clone() Set {
	return NewSet(s.items...)
}

// Context is the include and link configuration handed to a compile step
type Context struct {
	// Root is the absolute path of the project the context belongs to
	Root string

	// LinkedLibraries are library names passed as -l
	LinkedLibraries Set

	// LinkedDirectories are library search paths passed as -L
	LinkedDirectories Set

	// IncludedDirectories are header search paths passed as -I
	IncludedDirectories Set
}

// NewContext creates an empty context for the project at root
func NewContext(root string) *Context {
	return &Context{Root: root}
}

// Overwrite replaces the context's includes, libraries and library
// directories. Whatever was there before is discarded.
func (c *Context) Overwrite(includes, links, dirs []string) {
	c.IncludedDirectories.Reset(includes...)
	c.LinkedLibraries.Reset(links...)
	c.LinkedDirectories.Reset(dirs...)
}

// Clone returns a deep copy of the context
func (c *Context) Clone() *Context {
	return &Context{
		Root:                c.Root,
		LinkedLibraries:     c.LinkedLibraries.Clone(),
		LinkedDirectories:   c.LinkedDirectories.Clone(),
		IncludedDirectories: c.IncludedDirectories.Clone(),
	}
}
