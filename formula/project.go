package formula

import (
	"errors"
	"io"
	"io/fs"
	"path"
)

// -----------------------------------------------------------------------------

// Project represents an unpacked source tree being built.
type Project struct {
	DirFS fs.FS
}

// ReadFile reads the content of a file in the project.
func (p *Project) ReadFile(name string) ([]byte, error) {
	file, err := p.DirFS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// Match walks dir recursively and returns the slash-separated paths of regular
// files and symlinks whose base name matches pattern. A missing dir yields no matches.
func (p *Project) Match(dir, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	var matches []string
	err := fs.WalkDir(p.DirFS, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := path.Match(pattern, d.Name()); ok {
			matches = append(matches, name)
		}
		return nil
	})
	return matches, err
}

// -----------------------------------------------------------------------------
