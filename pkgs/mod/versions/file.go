// Package versions parses the dependency lock written by the host package
// manager before a build: which version of each dependency it provides and where
// that dependency is installed.
package versions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goplus/botanpkg/pkgs/mod/module"
)

// Dependency is one resolved dependency.
type Dependency struct {
	Version string `json:"version"`
	Dir     string `json:"dir"` // install root containing include/ and lib/
}

// Versions represents a dependency lock file.
type Versions struct {
	Path         string                `json:"path"` // package the lock was resolved for
	Dependencies map[string]Dependency `json:"deps"`
}

// Parse reads and parses a lock file from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
func Parse(file string, data []byte) (*Versions, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var v Versions

	if err := json.NewDecoder(reader).Decode(&v); err != nil {
		return nil, fmt.Errorf("parse dependency lock: %w", err)
	}

	return &v, nil
}

// Lookup returns the resolved dependency called name.
func (v *Versions) Lookup(name string) (Dependency, bool) {
	if v == nil {
		return Dependency{}, false
	}
	dep, ok := v.Dependencies[name]
	return dep, ok
}

// Modules lists the locked dependencies as module versions sorted by path.
func (v *Versions) Modules() []module.Version {
	if v == nil {
		return nil
	}
	mods := make([]module.Version, 0, len(v.Dependencies))
	for name, dep := range v.Dependencies {
		mods = append(mods, module.Version{Path: name, Version: dep.Version})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })
	return mods
}
