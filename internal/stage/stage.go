// Package stage copies build outputs into the package layout consumers expect
// and records what was copied.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"

	"github.com/goplus/botanpkg/formula"
)

// ManifestFile is the name of the manifest written to the package root.
const ManifestFile = "manifest.json"

// ErrMissingOutput reports an expected build output that is absent.
var ErrMissingOutput = errors.New("missing build output")

// Rule copies every file under SrcDir whose base name matches Pattern into
// DstDir, dropping the directory structure below SrcDir.
type Rule struct {
	Pattern string
	SrcDir  string // relative to the source root, slash-separated
	DstDir  string // relative to the package root, slash-separated
}

// Options controls a staging run.
type Options struct {
	// License lists candidate license files relative to the source root. The
	// first one found is copied to the package root; none found is an error.
	License []string
	// NonEmpty lists package dirs that must hold at least one file afterwards.
	NonEmpty []string
}

// File is one staged file.
type File struct {
	Path   string        `json:"path"` // relative to the package root, slash-separated
	Size   int64         `json:"size"`
	Digest digest.Digest `json:"digest"`
}

// Manifest lists the staged files sorted by path.
type Manifest struct {
	Files []File `json:"files"`
}

// Stage applies rules to the tree at srcRoot and copies into pkgRoot.
func Stage(ctx context.Context, srcRoot, pkgRoot string, rules []Rule, opts Options) (*Manifest, error) {
	log := logr.FromContextOrDiscard(ctx)
	proj := &formula.Project{DirFS: os.DirFS(srcRoot)}
	staged := make(map[string]File)

	if len(opts.License) > 0 {
		lic, err := findLicense(srcRoot, opts.License)
		if err != nil {
			return nil, err
		}
		f, err := copyFile(filepath.Join(srcRoot, filepath.FromSlash(lic)), pkgRoot, path.Base(lic))
		if err != nil {
			return nil, err
		}
		staged[f.Path] = f
	}

	for _, rule := range rules {
		matches, err := proj.Match(path.Clean(rule.SrcDir), rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", rule.Pattern, err)
		}
		for _, m := range matches {
			src := filepath.Join(srcRoot, filepath.FromSlash(m))
			info, err := os.Stat(src)
			if os.IsNotExist(err) {
				continue // dangling symlink
			}
			if err != nil {
				return nil, err
			}
			if !info.Mode().IsRegular() {
				continue
			}
			f, err := copyFile(src, pkgRoot, path.Join(rule.DstDir, path.Base(m)))
			if err != nil {
				return nil, err
			}
			staged[f.Path] = f
		}
		log.V(1).Info("staged", "pattern", rule.Pattern, "dst", rule.DstDir, "files", len(matches))
	}

	for _, dir := range opts.NonEmpty {
		entries, err := os.ReadDir(filepath.Join(pkgRoot, filepath.FromSlash(dir)))
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if !hasFile(entries) {
			return nil, fmt.Errorf("%w: no files in %s/", ErrMissingOutput, dir)
		}
	}

	m := &Manifest{Files: make([]File, 0, len(staged))}
	for _, f := range staged {
		m.Files = append(m.Files, f)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return m, nil
}

func hasFile(entries []os.DirEntry) bool {
	for _, e := range entries {
		if !e.IsDir() {
			return true
		}
	}
	return false
}

func findLicense(srcRoot string, candidates []string) (string, error) {
	for _, name := range candidates {
		info, err := os.Stat(filepath.Join(srcRoot, filepath.FromSlash(name)))
		if err == nil && info.Mode().IsRegular() {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: license file (tried %v)", ErrMissingOutput, candidates)
}

// copyFile copies src to rel under pkgRoot, keeping the file mode, and returns
// the manifest entry of the copy.
func copyFile(src, pkgRoot, rel string) (File, error) {
	dst := filepath.Join(pkgRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return File{}, err
	}
	in, err := os.Open(src)
	if err != nil {
		return File{}, err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return File{}, err
	}

	// dst may be a file installed earlier by the build tool, possibly read-only.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return File{}, err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return File{}, err
	}
	d := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(out, d.Hash()), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return File{}, fmt.Errorf("copy %s: %w", src, err)
	}
	return File{Path: rel, Size: n, Digest: d.Digest()}, nil
}

// Write stores the manifest as pkgRoot/manifest.json.
func (m *Manifest) Write(pkgRoot string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(pkgRoot, ManifestFile), data, 0o644)
}

// ReadManifest loads pkgRoot/manifest.json.
func ReadManifest(pkgRoot string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(pkgRoot, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Verify checks every file of the manifest against its recorded digest.
func (m *Manifest) Verify(pkgRoot string) error {
	for _, f := range m.Files {
		if err := f.Digest.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		fp, err := os.Open(filepath.Join(pkgRoot, filepath.FromSlash(f.Path)))
		if err != nil {
			return err
		}
		got, err := f.Digest.Algorithm().FromReader(fp)
		fp.Close()
		if err != nil {
			return err
		}
		if got != f.Digest {
			return fmt.Errorf("%s: digest %s, want %s", f.Path, got, f.Digest)
		}
	}
	return nil
}
