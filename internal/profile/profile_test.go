package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/botanpkg/formula"
)

func host() formula.Settings {
	return formula.Settings{OS: formula.Linux, Arch: "x86_64", Compiler: formula.GCC, Libcxx: "libstdc++11", BuildType: "Release"}
}

func TestApply(t *testing.T) {
	p, err := Parse([]byte(`
settings:
  compiler: clang
  compiler.libcxx: libc++
  build_type: Debug
options:
  shared: false
  zlib: true
  quiet: "no"
  openssl: 1
`))
	if err != nil {
		t.Fatal(err)
	}
	s, o, err := p.Apply(host(), formula.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := formula.Settings{OS: formula.Linux, Arch: "x86_64", Compiler: formula.Clang, Libcxx: "libc++", BuildType: "Debug"}
	if s != want {
		t.Errorf("settings = %+v, want %+v", s, want)
	}
	if o.Shared || !o.Zlib || o.Quiet || !o.OpenSSL || !o.Amalgamation {
		t.Errorf("options = %+v", o)
	}
}

func TestApply_UnknownOption(t *testing.T) {
	p, err := Parse([]byte("options:\n  lzma: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Apply(host(), formula.DefaultOptions()); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestApply_InvalidValue(t *testing.T) {
	p, err := Parse([]byte("options:\n  zlib: maybe\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Apply(host(), formula.DefaultOptions()); err == nil {
		t.Error("expected error for invalid option value")
	}
}

func TestParse_UnknownSection(t *testing.T) {
	if _, err := Parse([]byte("conf:\n  jobs: 4\n")); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.yaml")
	data := "settings:\n  os: Windows\n  arch: x86\n  compiler: Visual Studio\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s, _, err := p.Apply(host(), formula.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if s.OS != formula.Windows || s.Compiler != formula.VisualStudio || s.BuildType != "Release" {
		t.Errorf("settings = %+v", s)
	}

	var nilProfile *Profile
	if s, _, err := nilProfile.Apply(host(), formula.DefaultOptions()); err != nil || s != host() {
		t.Errorf("nil profile changed settings: %+v, %v", s, err)
	}
}
