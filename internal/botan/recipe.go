// Package botan is the recipe for packaging the Botan cryptography library:
// which dependencies an option set needs, where the sources live, how settings
// and options become configure.py flags, and what the finished package holds.
package botan

import (
	"fmt"
	"strings"

	"github.com/goplus/botanpkg/formula"
)

const (
	// Name is the package name.
	Name = "botan"

	// DefaultVersion is the upstream release packaged when none is requested.
	DefaultVersion = "2.1.0"

	// DefaultDistribution is the value passed as --distribution-info.
	DefaultDistribution = "botanpkg"

	sourceURL = "https://github.com/randombit/botan"
)

// SourceURL returns the upstream release archive for version.
func SourceURL(version string) string {
	return fmt.Sprintf("%s/archive/%s.tar.gz", sourceURL, version)
}

// ExtractedDir returns the top-level directory of the release archive.
func ExtractedDir(version string) string {
	return strings.ToLower(Name + "-" + version)
}

// Requirements returns the libraries the build needs for the given options.
func Requirements(o formula.Options) []formula.Requirement {
	reqs := &formula.Requirements{}
	if o.Bzip2 {
		reqs.Require("bzip2", ">=1.0")
	}
	if o.OpenSSL {
		reqs.Require("openssl", ">=1.0.2m")
	}
	if o.Zlib {
		reqs.Require("zlib", ">=1.2")
	}
	if o.Sqlite3 {
		reqs.Require("sqlite3", ">=3.18")
	}
	return reqs.List()
}
