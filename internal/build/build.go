// Package build runs the recipe pipeline for one package version and one
// settings/options combination, and caches the result in the workspace.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-logr/logr"
	cp "github.com/otiai10/copy"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/internal/botan"
	"github.com/goplus/botanpkg/internal/source"
	"github.com/goplus/botanpkg/internal/stage"
	"github.com/goplus/botanpkg/pkgs/buildsys"
	"github.com/goplus/botanpkg/pkgs/buildsys/configurepy"
	"github.com/goplus/botanpkg/pkgs/mod/module"
	"github.com/goplus/botanpkg/pkgs/mod/versions"
)

// Failure classes of a build, checked with errors.Is.
var (
	ErrDependency = errors.New("dependency resolution failed")
	ErrSource     = errors.New("source acquisition failed")
	ErrTool       = errors.New("build tool failed")
	ErrStaging    = errors.New("staging failed")
)

// Options configures a Builder.
type Options struct {
	WorkspaceDir string
	Version      string // upstream version, botan.DefaultVersion if empty
	Settings     formula.Settings
	Options      formula.Options
	Deps         *versions.Versions // dependencies provided by the host
	Runner       buildsys.Runner    // runs configure.py and make; os/exec if nil
	Fetcher      *source.Fetcher    // downloads the release; no retries if nil
	SourceURL    string             // release archive, upstream if empty
	Distribution string             // --distribution-info, botan.DefaultDistribution if empty
	VCVars       string             // vcvarsall.bat wrapping nmake on Windows
	Jobs         int                // parallel make jobs, the number of CPUs if zero
	Force        bool               // rebuild even if cached
}

// Builder builds one package variant.
type Builder struct {
	workspaceDir string
	mod          module.Version
	settings     formula.Settings
	options      formula.Options
	matrix       string
	deps         *versions.Versions
	runner       buildsys.Runner
	fetcher      *source.Fetcher
	sourceURL    string
	distribution string
	vcvars       string
	jobs         int
	force        bool
}

// Result describes a finished build.
type Result struct {
	Module    module.Version
	Matrix    string
	Dir       string // package root
	Info      *formula.PackageInfo
	Metadata  string
	BuildTime time.Time
	Cached    bool
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.WorkspaceDir == "" {
		return nil, errors.New("no workspace dir")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		workspaceDir: opts.WorkspaceDir,
		mod:          module.Version{Path: botan.Name, Version: opts.Version},
		settings:     opts.Settings,
		options:      opts.Options.Normalize(),
		deps:         opts.Deps,
		runner:       opts.Runner,
		fetcher:      opts.Fetcher,
		sourceURL:    opts.SourceURL,
		distribution: opts.Distribution,
		vcvars:       opts.VCVars,
		jobs:         opts.Jobs,
		force:        opts.Force,
	}
	if b.mod.Version == "" {
		b.mod.Version = botan.DefaultVersion
	}
	if err := checkVersion(b.mod.Version); err != nil {
		return nil, err
	}
	if b.runner == nil {
		b.runner = &buildsys.ExecRunner{}
	}
	if b.fetcher == nil {
		b.fetcher = source.NewFetcher()
	}
	if b.sourceURL == "" {
		b.sourceURL = botan.SourceURL(b.mod.Version)
	}
	if b.distribution == "" {
		b.distribution = botan.DefaultDistribution
	}
	if b.jobs <= 0 {
		b.jobs = runtime.NumCPU()
	}
	b.matrix = formula.NewMatrix(b.settings, b.options).String()
	return b, nil
}

// versionRE matches release names such as "2.1.0" or "3.0.0-alpha1".
var versionRE = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.+_-]*$`)

// checkVersion rejects versions that cannot safely name a workspace directory
// or a release archive.
func checkVersion(version string) error {
	if !versionRE.MatchString(version) || strings.Contains(version, "..") {
		return fmt.Errorf("invalid version %q", version)
	}
	return nil
}

// Module returns the package version being built.
func (b *Builder) Module() module.Version { return b.mod }

// Matrix returns the build key of the settings and options.
func (b *Builder) Matrix() string { return b.matrix }

// Cached returns the cached result of a previous build, if any.
func (b *Builder) Cached() (*Result, bool, error) {
	cache, err := b.loadCache()
	if err != nil {
		return nil, false, err
	}
	entry, ok := cache.get(b.mod.Version, b.matrix)
	if !ok {
		return nil, false, nil
	}
	dir, err := b.installDir()
	if err != nil {
		return nil, false, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, false, nil
	}
	return &Result{
		Module:    b.mod,
		Matrix:    b.matrix,
		Dir:       dir,
		Info:      entry.Info,
		Metadata:  entry.Metadata,
		BuildTime: entry.BuildTime,
		Cached:    true,
	}, true, nil
}

// Build runs the pipeline, or returns the cached package unless forced.
// The first failing stage aborts the build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("module", b.mod.String(), "matrix", b.matrix)
	ctx = logr.NewContext(ctx, log)

	unlock, err := b.lockModule()
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Checked after acquiring the lock: another process may have built it.
	if !b.force {
		if res, ok, err := b.Cached(); err != nil {
			return nil, err
		} else if ok {
			log.Info("using cached build", "dir", res.Dir)
			return res, nil
		}
	}

	log.Info("resolving requirements")
	log.V(1).Info("provided dependencies", "deps", b.deps.Modules())
	resolved, err := botan.Resolve(botan.Requirements(b.options), b.lookup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependency, err)
	}

	srcDir, err := b.sourceDir()
	if err != nil {
		return nil, err
	}
	log.Info("acquiring source", "url", b.sourceURL)
	if err := b.fetcher.Acquire(ctx, b.sourceURL, botan.ExtractedDir(b.mod.Version), srcDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}

	// Every variant starts from a fresh copy so no output of another variant
	// can be staged into this package.
	buildDir, err := b.buildDir()
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, err
	}
	if err := cp.Copy(srcDir, buildDir, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Shallow },
	}); err != nil {
		return nil, fmt.Errorf("%w: copy sources: %w", ErrSource, err)
	}

	installDir, err := b.installDir()
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(installDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, err
	}

	bs := b.buildSystem(buildDir, installDir)
	for _, dep := range resolved {
		if err := bs.Use(dep.Dir); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDependency, dep.Name, err)
		}
	}

	log.Info("configuring")
	if err := bs.Configure(ctx, botan.ConfigureFlags(b.settings, b.options, b.distribution)...); err != nil {
		return nil, fmt.Errorf("%w: configure: %w", ErrTool, err)
	}

	for _, p := range botan.PatchesFor(b.settings, b.mod.Version) {
		log.Info("patching", "patch", p.Name())
		if err := p.Apply(bs); err != nil {
			return nil, fmt.Errorf("%w: patch %s: %w", ErrTool, p.Name(), err)
		}
	}

	log.Info("building", "jobs", b.jobs)
	for k, v := range botan.BuildEnv(b.settings) {
		bs.AppendFlag(k, v)
	}
	if err := bs.Build(ctx, botan.MakeArgs(b.settings, b.options, b.jobs)...); err != nil {
		return nil, fmt.Errorf("%w: build: %w", ErrTool, err)
	}

	log.Info("installing", "dir", bs.OutputDir())
	if err := bs.Install(ctx); err != nil {
		return nil, fmt.Errorf("%w: install: %w", ErrTool, err)
	}

	log.Info("staging")
	pkgDir := bs.OutputDir()
	manifest, err := stage.Stage(ctx, bs.SourceDir(), pkgDir, botan.StageRules(), stage.Options{
		License:  botan.LicenseFiles,
		NonEmpty: []string{"lib"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}
	if err := manifest.Write(pkgDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}

	info, err := botan.PackageInfo(pkgDir, b.settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}

	res := &Result{
		Module:    b.mod,
		Matrix:    b.matrix,
		Dir:       pkgDir,
		Info:      info,
		Metadata:  info.Metadata(),
		BuildTime: time.Now(),
	}
	cache, err := b.loadCache()
	if err != nil {
		return nil, err
	}
	cache.set(b.mod.Version, b.matrix, &buildEntry{
		Metadata:  res.Metadata,
		Info:      info,
		BuildTime: res.BuildTime,
	})
	if err := b.saveCache(cache); err != nil {
		return nil, err
	}
	log.Info("built", "files", len(manifest.Files), "libs", info.Libs)
	return res, nil
}

func (b *Builder) lookup(name string) (version, dir string, ok bool) {
	dep, ok := b.deps.Lookup(name)
	return dep.Version, dep.Dir, ok
}

func (b *Builder) buildSystem(srcDir, installDir string) *configurepy.ConfigurePy {
	opts := []configurepy.Option{configurepy.WithRunner(b.runner)}
	if b.settings.OS == formula.Windows {
		opts = append(opts, configurepy.WithWindows())
		if b.vcvars != "" {
			opts = append(opts, configurepy.WithVCVars(b.vcvars, botan.VCVarsArch(b.settings)))
		}
	}
	return configurepy.New(srcDir, installDir, opts...)
}

// ConfigureCmd returns the configure invocation Build would run, without
// touching the workspace.
func (b *Builder) ConfigureCmd() (buildsys.Cmd, error) {
	buildDir, err := b.buildDir()
	if err != nil {
		return buildsys.Cmd{}, err
	}
	installDir, err := b.installDir()
	if err != nil {
		return buildsys.Cmd{}, err
	}
	bs := b.buildSystem(buildDir, installDir)
	return bs.ConfigureCmd(botan.ConfigureFlags(b.settings, b.options, b.distribution)...), nil
}
