package env

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/botanpkg/formula"
)

// WorkDir returns the root of the workspace holding sources, packages and the
// build cache: $BOTANPKG_HOME if set, otherwise <user cache dir>/.botanpkg.
func WorkDir() (string, error) {
	if dir := os.Getenv("BOTANPKG_HOME"); dir != "" {
		return filepath.Abs(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".botanpkg"), nil
}

// HostSettings returns release settings describing the machine we run on.
func HostSettings() formula.Settings {
	sysname, machine := uname()
	s := formula.Settings{
		OS:        normalizeOS(sysname),
		Arch:      normalizeArch(machine),
		BuildType: "Release",
	}
	s.Compiler = guessCompiler(s.OS, os.Getenv("CC"))
	s.Libcxx = defaultLibcxx(s.OS, s.Compiler)
	return s
}

func normalizeOS(sysname string) string {
	switch strings.ToLower(sysname) {
	case "linux":
		return formula.Linux
	case "darwin":
		return formula.Macos
	case "freebsd":
		return formula.FreeBSD
	case "windows":
		return formula.Windows
	}
	return sysname
}

func normalizeArch(machine string) string {
	switch strings.ToLower(machine) {
	case "x86_64", "amd64":
		return "x86_64"
	case "i386", "i486", "i586", "i686", "x86", "386":
		return "x86"
	case "aarch64", "arm64":
		return "armv8"
	}
	return machine
}

func guessCompiler(osName, cc string) string {
	base := strings.ToLower(filepath.Base(cc))
	switch {
	case strings.Contains(base, "clang"):
		if osName == formula.Macos {
			return formula.AppleClang
		}
		return formula.Clang
	case strings.Contains(base, "gcc"), strings.Contains(base, "g++"):
		return formula.GCC
	case base == "cl" || base == "cl.exe":
		return formula.VisualStudio
	}
	switch osName {
	case formula.Windows:
		return formula.VisualStudio
	case formula.Macos:
		return formula.AppleClang
	case formula.FreeBSD:
		return formula.Clang
	}
	return formula.GCC
}

func defaultLibcxx(osName, compiler string) string {
	switch {
	case osName == formula.Windows:
		return ""
	case compiler == formula.AppleClang, osName == formula.Macos, osName == formula.FreeBSD:
		return "libc++"
	case compiler == formula.GCC:
		return "libstdc++11"
	}
	return "libstdc++"
}
