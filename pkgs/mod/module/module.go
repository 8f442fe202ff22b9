// Package module defines the module.Version type along with support code.
package module

import (
	"path/filepath"
)

// A Version represents a specific version of a package identified by its path.
type Version struct {
	Path    string // Package path, e.g. "botan" or "openssl"
	Version string // Version string, e.g. "2.1.0"
}

// String returns "path@version", or just the path when the version is empty.
func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "@" + v.Version
}

// EscapePath returns the escaped form of the given path as a valid local file
// system path. It fails if the path is empty or escapes its root.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
