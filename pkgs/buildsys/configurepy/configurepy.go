// Package configurepy drives builds of projects configured by a Python
// configure.py script that generates a Makefile, as Botan does.
package configurepy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/botanpkg/pkgs/buildsys"
)

// ConfigurePy runs configure.py followed by make (or nmake) in the source directory.
type ConfigurePy struct {
	sourceDir  string
	installDir string
	env        map[string]string
	windows    bool
	python     string
	makeTool   string
	vcvars     string
	vcvarsArch string
	runner     buildsys.Runner
}

var _ buildsys.BuildSystem = (*ConfigurePy)(nil)

// Option configures a ConfigurePy.
type Option func(*ConfigurePy)

// WithRunner sets the runner used for every external command.
func WithRunner(r buildsys.Runner) Option {
	return func(c *ConfigurePy) {
		c.runner = r
	}
}

// WithWindows switches to the Windows toolchain: configure.py is run through the
// Python interpreter and the generated Makefile is driven by nmake.
func WithWindows() Option {
	return func(c *ConfigurePy) {
		c.windows = true
		c.python = "python"
		c.makeTool = "nmake"
	}
}

// WithVCVars runs make steps inside the environment set up by the given
// vcvarsall.bat for arch (e.g. "x86", "amd64").
func WithVCVars(script, arch string) Option {
	return func(c *ConfigurePy) {
		c.vcvars = script
		c.vcvarsArch = arch
	}
}

// New returns a ConfigurePy building sourceDir and installing into installDir.
func New(sourceDir, installDir string, opts ...Option) *ConfigurePy {
	c := &ConfigurePy{
		sourceDir:  sourceDir,
		installDir: installDir,
		env:        make(map[string]string),
		makeTool:   "make",
		runner:     &buildsys.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SourceDir returns the directory configure.py and make run in.
func (c *ConfigurePy) SourceDir() string { return c.sourceDir }

// Env sets key=value for every command spawned later. The process environment
// is left untouched.
func (c *ConfigurePy) Env(key, value string) {
	c.env[key] = value
}

// AppendFlag appends a space-separated flag to key.
func (c *ConfigurePy) AppendFlag(key, flag string) {
	cur, ok := c.env[key]
	if !ok {
		cur = os.Getenv(key)
	}
	if cur != "" {
		flag = cur + " " + flag
	}
	c.env[key] = flag
}

func (c *ConfigurePy) prependPath(key, value string) {
	sep := ":"
	if c.windows {
		sep = ";"
	}
	cur, ok := c.env[key]
	if !ok {
		cur = os.Getenv(key)
	}
	if cur != "" {
		value += sep + cur
	}
	c.env[key] = value
}

// Use makes headers, libraries and pkg-config files of a dependency installed
// at root visible to the compiler and linker.
func (c *ConfigurePy) Use(root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("use %s: %w", root, err)
	}
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if _, err := os.Stat(pkgconfigDir); err == nil {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	_, incErr := os.Stat(includeDir)
	_, libErr := os.Stat(libDir)

	if c.windows {
		if incErr == nil {
			c.prependPath("INCLUDE", includeDir)
		}
		if libErr == nil {
			c.prependPath("LIB", libDir)
		}
		return nil
	}
	if incErr == nil {
		c.AppendFlag("CPPFLAGS", "-I"+includeDir)
		c.AppendFlag("CXXFLAGS", "-I"+includeDir)
	}
	if libErr == nil {
		c.AppendFlag("LDFLAGS", "-L"+libDir)
	}
	return nil
}

// ConfigureCmd returns the configure.py invocation for args.
// --prefix is prepended automatically when the install dir is set.
func (c *ConfigurePy) ConfigureCmd(args ...string) buildsys.Cmd {
	flags := make([]string, 0, 2+len(args))
	path := "./configure.py"
	if c.python != "" {
		path = c.python
		flags = append(flags, "./configure.py")
	}
	if c.installDir != "" {
		flags = append(flags, "--prefix="+c.installDir)
	}
	flags = append(flags, args...)
	return c.cmd(path, flags)
}

// MakeCmd returns the make (or nmake) invocation for args, wrapped in the
// vcvars environment when one is configured.
func (c *ConfigurePy) MakeCmd(args ...string) buildsys.Cmd {
	if c.vcvars == "" {
		return c.cmd(c.makeTool, args)
	}
	wrapped := []string{"/C", "call", c.vcvars}
	if c.vcvarsArch != "" {
		wrapped = append(wrapped, c.vcvarsArch)
	}
	wrapped = append(wrapped, "&&", c.makeTool)
	return c.cmd("cmd", append(wrapped, args...))
}

func (c *ConfigurePy) cmd(path string, args []string) buildsys.Cmd {
	var env map[string]string
	if len(c.env) > 0 {
		env = make(map[string]string, len(c.env))
		for k, v := range c.env {
			env[k] = v
		}
	}
	return buildsys.Cmd{Path: path, Args: args, Dir: c.sourceDir, Env: env}
}

// Configure runs configure.py in the source directory.
func (c *ConfigurePy) Configure(ctx context.Context, args ...string) error {
	return c.runner.Run(ctx, c.ConfigureCmd(args...))
}

// Build runs make with optional extra arguments.
func (c *ConfigurePy) Build(ctx context.Context, args ...string) error {
	return c.runner.Run(ctx, c.MakeCmd(args...))
}

// Install runs "make install" with optional extra arguments appended.
func (c *ConfigurePy) Install(ctx context.Context, args ...string) error {
	return c.runner.Run(ctx, c.MakeCmd(append([]string{"install"}, args...)...))
}

// OutputDir returns the install dir if set, otherwise the source dir.
func (c *ConfigurePy) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.sourceDir
}

// ReplaceInFile replaces every occurrence of old with new in the file name
// relative to the source directory. It fails when old does not occur.
func (c *ConfigurePy) ReplaceInFile(name, old, new string) error {
	file := filepath.Join(c.sourceDir, name)
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	content := string(data)
	if !strings.Contains(content, old) {
		return fmt.Errorf("replace in %s: %q not found", name, old)
	}
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	content = strings.ReplaceAll(content, old, new)
	return os.WriteFile(file, []byte(content), info.Mode().Perm())
}
