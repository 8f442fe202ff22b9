package formula

import (
	"fmt"
	"strings"
)

// Operating systems known to the recipe.
const (
	Linux   = "Linux"
	Windows = "Windows"
	Macos   = "Macos"
	FreeBSD = "FreeBSD"
)

// Compilers known to the recipe.
const (
	GCC          = "gcc"
	Clang        = "clang"
	AppleClang   = "apple-clang"
	VisualStudio = "Visual Studio"
)

// Settings describes the platform a package is built for. It is supplied once per
// build invocation and never modified afterwards.
type Settings struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Compiler  string `json:"compiler"`
	Libcxx    string `json:"libcxx,omitempty"` // compiler.libcxx, ignored on Windows
	BuildType string `json:"build_type"`
}

// Set assigns a setting by its key. Both "libcxx" and "compiler.libcxx" are accepted.
func (s Settings) Set(key, value string) (Settings, error) {
	switch strings.ToLower(key) {
	case "os":
		s.OS = value
	case "arch":
		s.Arch = value
	case "compiler":
		s.Compiler = value
	case "libcxx", "compiler.libcxx":
		s.Libcxx = value
	case "build_type":
		s.BuildType = value
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, nil
}

// IsDebug reports whether the build type is Debug, ignoring case.
func (s Settings) IsDebug() bool {
	return strings.EqualFold(s.BuildType, "debug")
}

// Validate checks that every mandatory setting is present.
func (s Settings) Validate() error {
	var missing []string
	if s.OS == "" {
		missing = append(missing, "os")
	}
	if s.Arch == "" {
		missing = append(missing, "arch")
	}
	if s.Compiler == "" {
		missing = append(missing, "compiler")
	}
	if s.BuildType == "" {
		missing = append(missing, "build_type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
