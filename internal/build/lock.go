package build

import (
	"os"
	"path/filepath"
)

// lockModule takes an exclusive lock shared by every process building the
// module. It blocks until the lock is free.
func (b *Builder) lockModule() (unlock func(), err error) {
	dir, err := b.cacheDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
