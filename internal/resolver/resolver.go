// Package resolver walks a project's dependency graph, rebuilds what changed
// and runs the project's build script.
//
// A pass over a project reads its lock file and handles every dependency in
// declaration order: materialize it, route its include and link
// configuration into the build-time or main context, and, when its sources
// changed since the last recorded build, resolve it recursively and collect
// its artifacts. The project's own build script is compiled against the
// build-time context and invoked with the main context once every
// dependency is in place.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/log"
	"github.com/spf13/afero"

	"github.com/Norgate-AV/kiln/internal/cache"
	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/compiler"
	"github.com/Norgate-AV/kiln/internal/manifest"
	"github.com/Norgate-AV/kiln/internal/project"
	"github.com/Norgate-AV/kiln/pkg/kiln"
)

// Materializer places a dependency's sources at dest
type Materializer interface {
	Materialize(ctx context.Context, dep manifest.Dependency, dest string) error
}

// Invoker runs the entry point of a compiled build script
type Invoker interface {
	Invoke(artifact, symbol, root string, c *kiln.Context) (int, error)
}

// Options configure a Resolver
type Options struct {
	// Force treats every dependency as stale
	Force bool

	// Fs is the filesystem staleness is checked on. Defaults to the OS.
	Fs afero.Fs

	// Now stamps successful builds. Defaults to time.Now.
	Now func() time.Time
}

// Resolver resolves projects
type Resolver struct {
	fetcher   Materializer
	toolchain compiler.Toolchain
	executor  Invoker
	fs        afero.Fs
	now       func() time.Time
	force     bool
}

// New creates a resolver from its collaborators
func New(fetcher Materializer, toolchain compiler.Toolchain, executor Invoker, opts Options) *Resolver {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Resolver{
		fetcher:   fetcher,
		toolchain: toolchain,
		executor:  executor,
		fs:        opts.Fs,
		now:       opts.Now,
		force:     opts.Force,
	}
}

// PackageData is what a pass remembers about a materialized dependency
type PackageData struct {
	Name     string
	Root     string
	Includes []string
	Links    []string

	// Current is set once the package was built or found fresh in this pass
	Current bool
}

// Pass is the state shared by one top-level resolution and everything it
// resolves recursively. A Pass must not be reused.
//
// Every dependency reached during a pass is materialized under the packages
// directory of the project the pass started from, so a package shared by
// several dependents has one root no matter which dependent reaches it
// first.
type Pass struct {
	memo     map[string]*PackageData
	stack    []string
	built    []string
	packages string
}

// NewPass starts a new pass
func NewPass() *Pass {
	return &Pass{memo: make(map[string]*PackageData)}
}

// Built lists the dependencies rebuilt during the pass, in completion order
func (p *Pass) Built() []string {
	return slices.Clone(p.built)
}

// Package returns what the pass recorded for name
func (p *Pass) Package(name string) (*PackageData, bool) {
	data, ok := p.memo[name]
	return data, ok
}

// PackageDir is where the pass materializes the named dependency
func (p *Pass) PackageDir(name string) string {
	return filepath.Join(p.packages, name)
}

// closure returns root followed by the materialized roots of everything
// the package at root depends on, directly or not. Dependencies that were
// never materialized are left out; declaring them changed the package's lock
// file, which is under root.
func (p *Pass) closure(root string) ([]string, error) {
	roots := []string{root}
	seen := map[string]bool{root: true}

	for i := 0; i < len(roots); i++ {
		lock, err := manifest.ReadLock(filepath.Join(roots[i], project.LockFile))
		if err != nil {
			return nil, err
		}

		for _, dep := range lock.Dependencies {
			dir := p.PackageDir(dep.Name)
			if seen[dir] {
				continue
			}

			seen[dir] = true
			if _, err := os.Stat(dir); err == nil {
				roots = append(roots, dir)
			}
		}
	}

	return roots, nil
}

func (p *Pass) inProgress(name string) bool {
	return slices.Contains(p.stack, name)
}

func (p *Pass) cycle(name string) error {
	i := slices.Index(p.stack, name)
	path := append(slices.Clone(p.stack[i:]), name)

	return codes.Errorf(codes.ErrCycle, name, "dependency cycle: %s", strings.Join(path, " -> "))
}

// Result holds the contexts a project was built with
type Result struct {
	Name  string
	Build *kiln.Context
	Main  *kiln.Context
}

// Resolve resolves the project at root within pass
func (r *Resolver) Resolve(ctx context.Context, root string, pass *Pass) (*Result, error) {
	layout, err := project.NewLayout(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	m, err := manifest.Read(layout.Manifest())
	if err != nil {
		return nil, err
	}

	name := m.Package.Name
	if pass.inProgress(name) {
		return nil, pass.cycle(name)
	}

	if pass.packages == "" {
		pass.packages = layout.PackagesDir()
	}

	pass.stack = append(pass.stack, name)
	defer func() { pass.stack = pass.stack[:len(pass.stack)-1] }()

	lock, err := manifest.ReadLock(layout.Lock())
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(layout.Ledger())
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	ledger, err := store.Load()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Name:  name,
		Build: kiln.NewContext(layout.Root),
		Main:  kiln.NewContext(layout.Root),
	}

	log.WithField("package", name).WithField("dependencies", len(lock.Dependencies)).Info("resolving")

	for _, dep := range lock.Dependencies {
		if err := r.dependency(ctx, layout, dep, pass, ledger, res); err != nil {
			return nil, err
		}
	}

	if err := store.Save(ledger); err != nil {
		return nil, err
	}

	res.Build.LinkedDirectories.Add(layout.WorkDir())

	if err := r.run(ctx, layout, name, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (r *Resolver) dependency(ctx context.Context, layout project.Layout, dep manifest.Dependency, pass *Pass, ledger cache.Ledger, res *Result) error {
	logger := log.WithField("package", dep.Name)

	if pass.inProgress(dep.Name) {
		return pass.cycle(dep.Name)
	}

	data, seen := pass.memo[dep.Name]
	if !seen {
		var err error
		if data, err = r.materialize(ctx, dep, pass); err != nil {
			return err
		}
	}

	links := data.Links
	if dep.NoBuild {
		links = nil
	}

	target := res.Main
	if dep.Target == manifest.BuildTime {
		target = res.Build
	}

	target.Overwrite(data.Includes, links, []string{layout.OutputDir(dep.Target)})

	if dep.NoBuild {
		logger.Debug("header only, not building")
		return nil
	}

	stale := r.force && !data.Current
	if !stale {
		roots, err := pass.closure(data.Root)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", dep.Name, err)
		}

		if stale, err = cache.IsStale(r.fs, ledger, dep.Name, roots...); err != nil {
			return fmt.Errorf("failed to check %s: %w", dep.Name, err)
		}
	}

	if !stale {
		logger.Info("up to date")
		data.Current = true
		return nil
	}

	if seen && data.Current {
		return r.collect(layout, dep, data, ledger, "already built in this pass")
	}

	logger.Info("building")

	log.IncreasePadding()
	_, err := r.Resolve(ctx, data.Root, pass)
	log.DecreasePadding()

	if err != nil {
		return err
	}

	data.Current = true
	pass.built = append(pass.built, dep.Name)

	return r.collect(layout, dep, data, ledger, "built")
}

// collect copies a current package's artifacts into the project's output
// area for its target and records it in the project's ledger
func (r *Resolver) collect(layout project.Layout, dep manifest.Dependency, data *PackageData, ledger cache.Ledger, msg string) error {
	copied, err := cache.CopyArtifacts(filepath.Join(data.Root, kiln.OutputDir), layout.OutputDir(dep.Target))
	if err != nil {
		return codes.New(codes.ErrBuild, dep.Name, err)
	}

	ledger.Stamp(dep.Name, r.now())

	log.WithField("package", dep.Name).WithField("artifacts", len(copied)).Info(msg)

	return nil
}

func (r *Resolver) materialize(ctx context.Context, dep manifest.Dependency, pass *Pass) (*PackageData, error) {
	dest := pass.PackageDir(dep.Name)

	if err := r.fetcher.Materialize(ctx, dep, dest); err != nil {
		return nil, err
	}

	m, err := manifest.Read(filepath.Join(dest, project.ManifestFile))
	if err != nil {
		var kerr *codes.Error
		if errors.As(err, &kerr) && kerr.Package == "" {
			kerr.Package = dep.Name
		}

		return nil, err
	}

	data := &PackageData{
		Name:     dep.Name,
		Root:     dest,
		Includes: m.Includes(dest),
		Links:    m.Links(),
	}
	pass.memo[dep.Name] = data

	return data, nil
}

// run compiles the project's build script against the build-time context
// and calls it with the main context
func (r *Resolver) run(ctx context.Context, layout project.Layout, name string, res *Result) error {
	if _, err := os.Stat(layout.Script()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return codes.Errorf(codes.ErrConfig, name, "no %s found in %s", project.ScriptFile, layout.Root)
		}

		return err
	}

	if err := os.MkdirAll(layout.WorkDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", layout.WorkDir(), err)
	}

	artifact, err := r.toolchain.Compile(ctx, compiler.Request{
		Package: name,
		Dir:     layout.Root,
		Entry:   layout.Script(),
		Output:  layout.Artifact(),
		Context: res.Build.Clone(),
	})
	if err != nil {
		return err
	}

	status, err := r.executor.Invoke(artifact, kiln.EntrySymbol, layout.Root, res.Main.Clone())
	if err != nil {
		var kerr *codes.Error
		if errors.As(err, &kerr) && kerr.Package == "" {
			kerr.Package = name
		}

		return err
	}

	if status != 0 {
		return codes.Errorf(codes.ErrBuild, name, "build script exited with status %d", status)
	}

	return nil
}
