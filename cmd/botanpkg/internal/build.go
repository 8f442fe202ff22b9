package internal

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cp "github.com/otiai10/copy"
	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/internal/botan"
	"github.com/goplus/botanpkg/internal/build"
	"github.com/goplus/botanpkg/internal/source"
	"github.com/goplus/botanpkg/internal/upstream"
	"github.com/goplus/botanpkg/pkgs/buildsys"
	"github.com/goplus/botanpkg/pkgs/mod/versions"
)

var buildFlags struct {
	deps      string
	force     bool
	retries   int
	timeout   time.Duration
	vcvars    string
	sourceURL string
	jobs      int
	out       string
}

var buildCmd = &cobra.Command{
	Use:   "build [botan@version]",
	Short: "Build a Botan package",
	Long: `Build downloads, configures, compiles and stages Botan into the workspace
and prints the compiler and linker flags of the package.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.deps, "deps", "", "Dependency lock naming the version and install dir of each dependency")
	f.BoolVar(&buildFlags.force, "force", false, "Rebuild even if a cached package exists")
	f.IntVar(&buildFlags.retries, "retries", 0, "Number of times a failed download is retried")
	f.DurationVar(&buildFlags.timeout, "timeout", 10*time.Minute, "Timeout of each download attempt")
	f.StringVar(&buildFlags.vcvars, "vcvars", "", "vcvarsall.bat to set up the Visual Studio environment on Windows")
	f.StringVar(&buildFlags.sourceURL, "source-url", "", "Release archive to build instead of the upstream one")
	f.IntVarP(&buildFlags.jobs, "jobs", "j", 0, "Parallel make jobs (default the number of CPUs)")
	f.StringVar(&buildFlags.out, "out", "", "Copy the package to this path (directory or .zip file)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Resolve output path to absolute before build
	if buildFlags.out != "" {
		abs, err := filepath.Abs(buildFlags.out)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		buildFlags.out = abs
	}

	var deps *versions.Versions
	if buildFlags.deps != "" {
		var err error
		if deps, err = versions.Parse(buildFlags.deps, nil); err != nil {
			return err
		}
	}

	runner := &buildsys.ExecRunner{}
	if rootFlags.verbose {
		runner.Stdout = cmd.ErrOrStderr()
		runner.Stderr = cmd.ErrOrStderr()
	}

	builder, err := newBuilder(ctx, args, func(o *build.Options) {
		o.Deps = deps
		o.Runner = runner
		o.Fetcher = source.NewFetcher(source.WithRetries(buildFlags.retries), source.WithTimeout(buildFlags.timeout))
		o.SourceURL = buildFlags.sourceURL
		o.VCVars = buildFlags.vcvars
		o.Jobs = buildFlags.jobs
		o.Force = buildFlags.force
	})
	if err != nil {
		return err
	}

	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", builder.Module(), err)
	}

	if res.Metadata != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Metadata)
	}
	if buildFlags.out != "" {
		if err := outputResult(res.Dir, buildFlags.out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// newBuilder returns a builder for the package named by args and the root
// flags. mutate, if not nil, adjusts the options before the builder is made.
func newBuilder(ctx context.Context, args []string, mutate func(*build.Options)) (*build.Builder, error) {
	version := ""
	if len(args) > 0 {
		var path string
		path, version = parseModuleArg(args[0])
		if path != botan.Name {
			return nil, fmt.Errorf("unknown package %q: only %s can be built", path, botan.Name)
		}
		v, err := upstream.Resolve(ctx, tagLister, upstream.Remote, version)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}
		version = v
	}
	s, o, err := config()
	if err != nil {
		return nil, err
	}
	dir, err := workDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace dir: %w", err)
	}
	opts := build.Options{
		WorkspaceDir: dir,
		Version:      version,
		Settings:     s,
		Options:      o,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return build.NewBuilder(opts)
}

// parseModuleArg parses a module argument in the form "name@version" or "name".
func parseModuleArg(arg string) (modPath, version string) {
	for i := len(arg) - 1; i >= 0; i-- {
		if arg[i] == '@' {
			return arg[:i], arg[i+1:]
		}
	}
	return arg, ""
}

// outputResult writes the package to dest.
// If dest ends with ".zip", creates a zip archive; otherwise copies the directory.
func outputResult(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	return cp.Copy(srcDir, dest, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Shallow },
	})
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}
