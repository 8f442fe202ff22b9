package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/pkgs/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/                      # module-level dir (cacheDir)
//	    .cache.json                   # build cache: maps "version-matrix" to buildEntry
//	    .lock                         # held while building any version of the module
//	  <escaped>@<version>/
//	    sources/                      # pristine upstream release (sourceDir)
//	    build/<matrix>/               # per-variant copy the tools run in (buildDir)
//	  <escaped>@<version>-<matrix>/   # build output dir (installDir), "|" written as "+"
//	    include/
//	    lib/
//	    manifest.json
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Metadata  string               `json:"metadata"`
	Info      *formula.PackageInfo `json:"info"`
	BuildTime time.Time            `json:"build_time"`
}

// buildCache maps "version-matrixString" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, matrix string) string {
	return version + "-" + matrix
}

func (c *buildCache) get(version, matrix string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, matrix)]
	return entry, ok
}

func (c *buildCache) set(version, matrix string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, matrix)] = entry
}

// cacheDir returns the module-level directory for cache storage: workspaceDir/<escapedPath>.
func (b *Builder) cacheDir() (string, error) {
	escaped, err := module.EscapePath(b.mod.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// sourceDir returns where the release is unpacked: workspaceDir/<escapedPath>@<version>/sources.
func (b *Builder) sourceDir() (string, error) {
	escaped, err := module.EscapePath(b.mod.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, fmt.Sprintf("%s@%s", escaped, b.mod.Version), "sources"), nil
}

// buildDir returns where a variant is configured and compiled:
// workspaceDir/<escapedPath>@<version>/build/<matrix>.
func (b *Builder) buildDir() (string, error) {
	escaped, err := module.EscapePath(b.mod.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, fmt.Sprintf("%s@%s", escaped, b.mod.Version), "build", b.dirKey()), nil
}

// installDir returns the build output directory: workspaceDir/<escapedPath>@<version>-<matrix>.
func (b *Builder) installDir() (string, error) {
	escaped, err := module.EscapePath(b.mod.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, fmt.Sprintf("%s@%s-%s", escaped, b.mod.Version, b.dirKey())), nil
}

// dirKey is the matrix as used in file names. "|" separates settings from
// options in the matrix but is not allowed in Windows file names.
func (b *Builder) dirKey() string {
	return strings.ReplaceAll(b.matrix, "|", "+")
}

// loadCache reads the cache file of the module. A missing file is an empty cache.
func (b *Builder) loadCache() (*buildCache, error) {
	dir, err := b.cacheDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if errors.Is(err, os.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("%s: %w", cacheFile, err)
	}
	return &cache, nil
}

// saveCache writes the cache file of the module.
func (b *Builder) saveCache(cache *buildCache) error {
	dir, err := b.cacheDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}
