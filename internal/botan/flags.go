package botan

import (
	"fmt"
	"strings"

	"github.com/goplus/botanpkg/formula"
)

// CompilerID maps a compiler setting to the name configure.py expects.
// Anything that is neither clang nor gcc is treated as msvc.
func CompilerID(s formula.Settings) string {
	switch s.Compiler {
	case formula.Clang, formula.AppleClang:
		return "clang"
	case formula.GCC:
		return "gcc"
	}
	return "msvc"
}

// CPU maps an arch setting to the configure.py cpu. Only x86 and x86_64 are
// distinguished.
func CPU(s formula.Settings) string {
	if s.Arch == "x86" {
		return "x86"
	}
	return "x86_64"
}

func linuxClangLibcxx(s formula.Settings) bool {
	return s.OS == formula.Linux && s.Compiler == formula.Clang && s.Libcxx == "libc++"
}

// ABIFlags returns the compiler flags affecting the binary interface.
func ABIFlags(s formula.Settings) []string {
	var flags []string
	if linuxClangLibcxx(s) {
		flags = append(flags, "-stdlib=libc++", "-lc++abi")
	}
	switch s.Arch {
	case "x86":
		flags = append(flags, "-m32")
	case "x86_64":
		flags = append(flags, "-m64")
	}
	return flags
}

// switchRule ties an option (or setting) to the configure.py switch it controls.
type switchRule struct {
	flag   string
	enable func(s formula.Settings, o formula.Options) bool
}

// featureSwitches lists the feature switches in the order they are passed.
var featureSwitches = []switchRule{
	{"--amalgamation", func(_ formula.Settings, o formula.Options) bool { return o.Amalgamation }},
	{"--single-amalgamation-file", func(_ formula.Settings, o formula.Options) bool { return o.SingleAmalgamation }},
	{"--with-bzip2", func(_ formula.Settings, o formula.Options) bool { return o.Bzip2 }},
	{"--with-debug-info", func(_ formula.Settings, o formula.Options) bool { return o.DebugInfo }},
	{"--debug-mode", func(s formula.Settings, _ formula.Options) bool { return s.IsDebug() }},
	{"--with-openssl", func(_ formula.Settings, o formula.Options) bool { return o.OpenSSL }},
	{"--quiet", func(_ formula.Settings, o formula.Options) bool { return o.Quiet }},
	{"--disable-shared", func(_ formula.Settings, o formula.Options) bool { return !o.Shared }},
	{"--with-sqlite3", func(_ formula.Settings, o formula.Options) bool { return o.Sqlite3 }},
	{"--with-zlib", func(_ formula.Settings, o formula.Options) bool { return o.Zlib }},
}

// ConfigureFlags derives the configure.py arguments from settings and options.
// The install prefix is not included; the build system adds it. Options are
// normalized first, so the caller's value may be raw.
func ConfigureFlags(s formula.Settings, o formula.Options, distribution string) []string {
	o = o.Normalize()
	var flags []string
	if distribution != "" {
		flags = append(flags, "--distribution-info="+distribution)
	}
	if abi := ABIFlags(s); len(abi) > 0 {
		flags = append(flags, "--cc-abi-flags="+strings.Join(abi, " "))
	}
	flags = append(flags, "--cc="+CompilerID(s), "--cpu="+CPU(s))
	for _, sw := range featureSwitches {
		if sw.enable(s, o) {
			flags = append(flags, sw.flag)
		}
	}
	return flags
}

// MakeArgs returns the arguments of the build step. nmake takes no job count.
func MakeArgs(s formula.Settings, o formula.Options, jobs int) []string {
	if s.OS == formula.Windows {
		return nil
	}
	var args []string
	if o.Quiet {
		args = append(args, "--quiet")
	}
	if jobs > 0 {
		args = append(args, fmt.Sprintf("-j%d", jobs))
	}
	return args
}

// BuildEnv returns extra environment for the build step.
func BuildEnv(s formula.Settings) map[string]string {
	if linuxClangLibcxx(s) {
		return map[string]string{"LDFLAGS": "-lc++abi"}
	}
	return nil
}

// VCVarsArch returns the vcvarsall.bat argument for the target arch.
func VCVarsArch(s formula.Settings) string {
	if s.Arch == "x86" {
		return "x86"
	}
	return "amd64"
}
