package build

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/internal/stage"
	"github.com/goplus/botanpkg/pkgs/buildsys"
	"github.com/goplus/botanpkg/pkgs/mod/versions"
)

// releaseTarball returns a gzip tarball laid out like an upstream release.
func releaseTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	if err := tw.WriteHeader(&tar.Header{
		Typeflag:   tar.TypeXGlobalHeader,
		Name:       "pax_global_header",
		PAXRecords: map[string]string{"comment": "0123456789abcdef"},
	}); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"botan-2.1.0/license.txt":  "Copyright (C) 1999-2017 The Botan Authors\n",
		"botan-2.1.0/configure.py": "#!/usr/bin/env python\n",
	}
	if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: "botan-2.1.0/", Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"botan-2.1.0/license.txt", "botan-2.1.0/configure.py"} {
		body := files[name]
		if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0o755, Size: int64(len(body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type releaseServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newReleaseServer(t *testing.T) *releaseServer {
	t.Helper()
	tarball := releaseTarball(t)
	s := &releaseServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != "/2.1.0.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(tarball)
	}))
	t.Cleanup(s.Close)
	return s
}

// fakeRunner plays configure.py and make: configure writes a Makefile and the
// generated headers, make builds the libraries and make install copies one of
// them to the prefix. The shared library is only built without --disable-shared.
type fakeRunner struct {
	cmds     []buildsys.Cmd
	failOn   string // fail the first command whose line contains it
	noOutput bool   // make builds nothing
	prefix   string
	static   bool
}

func (r *fakeRunner) Run(ctx context.Context, c buildsys.Cmd) error {
	r.cmds = append(r.cmds, c)
	line := c.String()
	if r.failOn != "" && strings.Contains(line, r.failOn) {
		return &buildsys.ToolError{Cmd: c, Output: []byte("error: boom"), Err: errors.New("exit status 2")}
	}
	switch {
	case strings.Contains(line, "configure.py"):
		for _, a := range c.Args {
			if p, ok := strings.CutPrefix(a, "--prefix="); ok {
				r.prefix = p
			}
		}
		r.static = hasArg(c.Args, "--disable-shared")
		return writeFiles(c.Dir, map[string]string{
			"Makefile":                         "install:\n\t$(SCRIPTS_DIR)\\install.py\n",
			"build/include/botan/build.h":      "#define BOTAN_VERSION_MAJOR 2\n",
			"build/include/external/bzip2.h":   "",
			"src/lib/utils/should_not_stage.h": "",
		})
	case hasArg(c.Args, "install"):
		if r.noOutput {
			return nil
		}
		if r.static {
			return writeFiles(r.prefix, map[string]string{"lib/libbotan-2.a": "a"})
		}
		return writeFiles(r.prefix, map[string]string{"lib/libbotan-2.so": "so"})
	default:
		if r.noOutput {
			return nil
		}
		if r.static {
			return writeFiles(c.Dir, map[string]string{"libbotan-2.a": "a"})
		}
		return writeFiles(c.Dir, map[string]string{"libbotan-2.a": "a", "libbotan-2.so": "so"})
	}
}

func hasArg(args []string, arg string) bool {
	for _, a := range args {
		if a == arg {
			return true
		}
	}
	return false
}

func writeFiles(root string, files map[string]string) error {
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func linuxGCC() formula.Settings {
	return formula.Settings{
		OS:        formula.Linux,
		Arch:      "x86_64",
		Compiler:  formula.GCC,
		Libcxx:    "libstdc++11",
		BuildType: "Release",
	}
}

func newTestBuilder(t *testing.T, workspace string, srv *releaseServer, runner buildsys.Runner, mutate func(*Options)) *Builder {
	t.Helper()
	opts := Options{
		WorkspaceDir: workspace,
		Settings:     linuxGCC(),
		Options:      formula.DefaultOptions(),
		Runner:       runner,
		SourceURL:    srv.URL + "/2.1.0.tar.gz",
		Jobs:         4,
	}
	if mutate != nil {
		mutate(&opts)
	}
	b, err := NewBuilder(opts)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBuild(t *testing.T) {
	srv := newReleaseServer(t)
	workspace := t.TempDir()
	runner := &fakeRunner{}
	b := newTestBuilder(t, workspace, srv, runner, nil)

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.Cached {
		t.Error("first build reported as cached")
	}

	if len(runner.cmds) != 3 {
		t.Fatalf("ran %d commands, want 3", len(runner.cmds))
	}
	configure, build, install := runner.cmds[0], runner.cmds[1], runner.cmds[2]
	if configure.Path != "./configure.py" || configure.Args[0] != "--prefix="+res.Dir {
		t.Errorf("configure = %s", configure)
	}
	if !strings.Contains(configure.String(), "--cc=gcc --cpu=x86_64 --amalgamation") {
		t.Errorf("configure = %s", configure)
	}
	if want := []string{"--quiet", "-j4"}; build.Path != "make" || !reflect.DeepEqual(build.Args, want) {
		t.Errorf("build = %s", build)
	}
	if install.String() != "make install" {
		t.Errorf("install = %s", install)
	}
	if want := filepath.Join(workspace, "botan@2.1.0", "build", b.dirKey()); configure.Dir != want {
		t.Errorf("configure ran in %s, want %s", configure.Dir, want)
	}
	if _, err := os.Stat(filepath.Join(workspace, "botan@2.1.0", "sources", "Makefile")); err == nil {
		t.Error("configure wrote into the unpacked sources")
	}

	for _, name := range []string{
		"license.txt",
		"include/botan/build.h",
		"include/botan/bzip2.h",
		"lib/libbotan-2.a",
		"lib/libbotan-2.so",
		stage.ManifestFile,
	} {
		if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
			t.Errorf("package lacks %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "include/botan/should_not_stage.h")); err == nil {
		t.Error("header outside build/include was staged")
	}

	m, err := stage.ReadManifest(res.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(res.Dir); err != nil {
		t.Errorf("manifest does not verify: %v", err)
	}

	if !reflect.DeepEqual(res.Info.Libs, []string{"botan-2"}) {
		t.Errorf("Libs = %q", res.Info.Libs)
	}
	if !strings.HasSuffix(res.Metadata, "-lbotan-2 -lpthread") {
		t.Errorf("Metadata = %q", res.Metadata)
	}
	if _, err := os.Stat(filepath.Join(workspace, "botan", cacheFile)); err != nil {
		t.Errorf("cache not written: %v", err)
	}
}

func TestBuild_Cached(t *testing.T) {
	srv := newReleaseServer(t)
	workspace := t.TempDir()

	first, err := newTestBuilder(t, workspace, srv, &fakeRunner{}, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	res, err := newTestBuilder(t, workspace, srv, runner, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached || len(runner.cmds) != 0 {
		t.Errorf("second build: cached=%v, ran %d commands", res.Cached, len(runner.cmds))
	}
	if res.Metadata != first.Metadata || res.Dir != first.Dir {
		t.Errorf("cached result %+v differs from %+v", res, first)
	}

	// A different option set is a different package.
	runner = &fakeRunner{}
	other, err := newTestBuilder(t, workspace, srv, runner, func(o *Options) { o.Options.Shared = false }).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if other.Cached || other.Dir == first.Dir {
		t.Errorf("shared=false reused %s", other.Dir)
	}

	// Forced builds rerun the tools but reuse the unpacked sources.
	runner = &fakeRunner{}
	forced, err := newTestBuilder(t, workspace, srv, runner, func(o *Options) { o.Force = true }).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if forced.Cached || len(runner.cmds) != 3 {
		t.Errorf("forced build: cached=%v, ran %d commands", forced.Cached, len(runner.cmds))
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("downloaded %d times, want 1", got)
	}
}

func TestBuild_VariantsDoNotShareOutputs(t *testing.T) {
	srv := newReleaseServer(t)
	workspace := t.TempDir()

	sharedRunner := &fakeRunner{}
	shared, err := newTestBuilder(t, workspace, srv, sharedRunner, nil).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(shared.Dir, "lib", "libbotan-2.so")); err != nil {
		t.Fatalf("shared package lacks libbotan-2.so: %v", err)
	}

	runner := &fakeRunner{}
	static, err := newTestBuilder(t, workspace, srv, runner, func(o *Options) { o.Options.Shared = false }).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !hasArg(runner.cmds[0].Args, "--disable-shared") {
		t.Fatalf("configure = %s", runner.cmds[0])
	}
	if runner.cmds[0].Dir == sharedRunner.cmds[0].Dir {
		t.Fatalf("both variants configured in %s", runner.cmds[0].Dir)
	}
	entries, err := os.ReadDir(filepath.Join(static.Dir, "lib"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".so") {
			t.Errorf("static package contains %s", e.Name())
		}
	}
	if !reflect.DeepEqual(static.Info.Libs, []string{"botan-2"}) {
		t.Errorf("Libs = %q", static.Info.Libs)
	}

	// Rebuilding a variant starts from a clean copy of the sources.
	stale := filepath.Join(runner.cmds[0].Dir, "libbotan-2.so")
	if err := os.WriteFile(stale, []byte("so"), 0o644); err != nil {
		t.Fatal(err)
	}
	forced, err := newTestBuilder(t, workspace, srv, &fakeRunner{}, func(o *Options) {
		o.Options.Shared = false
		o.Force = true
	}).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(forced.Dir, "lib", "libbotan-2.so")); err == nil {
		t.Error("forced rebuild staged a leftover libbotan-2.so")
	}
}

func TestBuild_MissingDependency(t *testing.T) {
	srv := newReleaseServer(t)
	runner := &fakeRunner{}
	b := newTestBuilder(t, t.TempDir(), srv, runner, func(o *Options) { o.Options.OpenSSL = true })

	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrDependency) {
		t.Fatalf("err = %v, want ErrDependency", err)
	}
	if len(runner.cmds) != 0 || srv.hits.Load() != 0 {
		t.Error("pipeline continued after dependency failure")
	}
}

func TestBuild_WithDependency(t *testing.T) {
	srv := newReleaseServer(t)
	zlib := t.TempDir()
	if err := writeFiles(zlib, map[string]string{"include/zlib.h": "", "lib/libz.a": ""}); err != nil {
		t.Fatal(err)
	}
	deps := &versions.Versions{
		Path:         "botan",
		Dependencies: map[string]versions.Dependency{"zlib": {Version: "1.2.13", Dir: zlib}},
	}
	runner := &fakeRunner{}
	b := newTestBuilder(t, t.TempDir(), srv, runner, func(o *Options) {
		o.Options.Zlib = true
		o.Deps = deps
	})
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	configure := runner.cmds[0]
	if !hasArg(configure.Args, "--with-zlib") {
		t.Errorf("configure = %s", configure)
	}
	if got := configure.Env["CPPFLAGS"]; !strings.Contains(got, "-I"+filepath.Join(zlib, "include")) {
		t.Errorf("CPPFLAGS = %q", got)
	}
	if got := configure.Env["LDFLAGS"]; !strings.Contains(got, "-L"+filepath.Join(zlib, "lib")) {
		t.Errorf("LDFLAGS = %q", got)
	}
}

func TestBuild_SourceFailure(t *testing.T) {
	srv := newReleaseServer(t)
	b := newTestBuilder(t, t.TempDir(), srv, &fakeRunner{}, func(o *Options) { o.SourceURL = srv.URL + "/missing.tar.gz" })
	if _, err := b.Build(context.Background()); !errors.Is(err, ErrSource) {
		t.Fatalf("err = %v, want ErrSource", err)
	}
}

func TestBuild_ToolFailure(t *testing.T) {
	srv := newReleaseServer(t)
	runner := &fakeRunner{failOn: "install"}
	b := newTestBuilder(t, t.TempDir(), srv, runner, nil)

	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrTool) {
		t.Fatalf("err = %v, want ErrTool", err)
	}
	var te *buildsys.ToolError
	if !errors.As(err, &te) || !strings.Contains(err.Error(), "error: boom") {
		t.Errorf("err = %v, want the tool output", err)
	}
	if _, ok, _ := b.Cached(); ok {
		t.Error("failed build was cached")
	}
}

func TestBuild_NoLibraries(t *testing.T) {
	srv := newReleaseServer(t)
	b := newTestBuilder(t, t.TempDir(), srv, &fakeRunner{noOutput: true}, nil)
	_, err := b.Build(context.Background())
	if !errors.Is(err, ErrStaging) || !errors.Is(err, stage.ErrMissingOutput) {
		t.Fatalf("err = %v, want ErrStaging", err)
	}
}

func TestBuild_Windows(t *testing.T) {
	srv := newReleaseServer(t)
	runner := &fakeRunner{}
	b := newTestBuilder(t, t.TempDir(), srv, runner, func(o *Options) {
		o.Settings = formula.Settings{OS: formula.Windows, Arch: "x86", Compiler: formula.VisualStudio, BuildType: "Release"}
		o.VCVars = `C:\VS\VC\vcvarsall.bat`
	})
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	configure, build, install := runner.cmds[0], runner.cmds[1], runner.cmds[2]
	if configure.Path != "python" || configure.Args[0] != "./configure.py" {
		t.Errorf("configure = %s", configure)
	}
	if !strings.Contains(configure.String(), "--cc=msvc --cpu=x86 --amalgamation") {
		t.Errorf("configure = %s", configure)
	}
	if want := `cmd /C call C:\VS\VC\vcvarsall.bat x86 && nmake`; build.String() != want {
		t.Errorf("build = %s, want %s", build, want)
	}
	if !strings.HasSuffix(install.String(), "nmake install") {
		t.Errorf("install = %s", install)
	}

	makefile, err := os.ReadFile(filepath.Join(configure.Dir, "Makefile"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(makefile), `python $(SCRIPTS_DIR)\install.py`) {
		t.Errorf("Makefile not patched:\n%s", makefile)
	}
	if len(res.Info.SystemLibs) != 0 {
		t.Errorf("SystemLibs = %q", res.Info.SystemLibs)
	}
}

func TestConfigureCmd(t *testing.T) {
	srv := newReleaseServer(t)
	runner := &fakeRunner{}
	b := newTestBuilder(t, t.TempDir(), srv, runner, nil)
	cmd, err := b.ConfigureCmd()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(cmd.String(), "./configure.py --prefix=") || !strings.HasSuffix(cmd.String(), "--amalgamation --quiet") {
		t.Errorf("ConfigureCmd() = %s", cmd)
	}
	if len(runner.cmds) != 0 || srv.hits.Load() != 0 {
		t.Error("ConfigureCmd ran something")
	}
}

func TestNewBuilder_InvalidVersion(t *testing.T) {
	workspace := t.TempDir()
	for _, v := range []string{
		"x/../../../escaped",
		"..",
		"2.1.0/..",
		`2.1.0\..\x`,
		"2.1..0",
		"-2.1.0",
		"2.1.0 ",
	} {
		if _, err := NewBuilder(Options{WorkspaceDir: workspace, Settings: linuxGCC(), Version: v}); err == nil {
			t.Errorf("NewBuilder(Version: %q) succeeded", v)
		}
	}
	for _, v := range []string{"2.1.0", "3.0.0-alpha1", "2.19.3+local"} {
		if _, err := NewBuilder(Options{WorkspaceDir: workspace, Settings: linuxGCC(), Version: v}); err != nil {
			t.Errorf("NewBuilder(Version: %q): %v", v, err)
		}
	}
}

func TestNewBuilder_InvalidSettings(t *testing.T) {
	if _, err := NewBuilder(Options{WorkspaceDir: t.TempDir()}); err == nil {
		t.Error("expected error for empty settings")
	}
	if _, err := NewBuilder(Options{Settings: linuxGCC()}); err == nil {
		t.Error("expected error for missing workspace")
	}
}
