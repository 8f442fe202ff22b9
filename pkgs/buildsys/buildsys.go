// Package buildsys holds what build helpers (configure.py, make, nmake) share:
// the configure/build/install lifecycle and the way external tools are run.
package buildsys

import "context"

// BuildSystem captures shared capabilities of build helpers.
// Implementations add their own extras.
type BuildSystem interface {
	// Use exposes an installed dependency rooted at dir to the build.
	Use(dir string) error

	// Directory the tools run in.
	SourceDir() string

	// Environment of every command spawned later.
	Env(key, val string)

	// Lifecycle. Each step fails on the first non-zero exit.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}
