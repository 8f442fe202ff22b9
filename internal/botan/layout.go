package botan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/internal/stage"
)

// License files looked for at the top of the source tree, in order.
var LicenseFiles = []string{"license.txt", "LICENSE", "LICENSE.txt", "doc/license.txt"}

// StageRules returns where build outputs go in the package. Source dirs are
// relative to the unpacked source tree.
func StageRules() []stage.Rule {
	return []stage.Rule{
		{Pattern: "*.h", SrcDir: "build/include", DstDir: "include/botan"},
		{Pattern: "*.dll", SrcDir: ".", DstDir: "bin"},
		{Pattern: "*.lib", SrcDir: ".", DstDir: "lib"},
		{Pattern: "*.a", SrcDir: ".", DstDir: "lib"},
		{Pattern: "*.so*", SrcDir: ".", DstDir: "lib"},
		{Pattern: "*.dylib", SrcDir: ".", DstDir: "lib"},
	}
}

// libExts are the extensions of files consumers link against.
var libExts = map[string]bool{".so": true, ".lib": true, ".a": true, ".dylib": true}

// CollectLibs returns the link names of the libraries in dir, sorted and
// without duplicates: "libbotan-2.so" and "libbotan-2.a" both give "botan-2",
// "botan.lib" gives "botan". Versioned shared objects such as
// "libbotan-2.so.1" are skipped, their unversioned link is enough.
func CollectLibs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]bool)
	var libs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !libExts[ext] {
			continue
		}
		lib := strings.TrimSuffix(name, ext)
		if ext != ".lib" {
			lib = strings.TrimPrefix(lib, "lib")
		}
		if lib == "" || seen[lib] {
			continue
		}
		seen[lib] = true
		libs = append(libs, lib)
	}
	sort.Strings(libs)
	return libs, nil
}

// PackageInfo describes the staged package rooted at root to its consumers.
func PackageInfo(root string, s formula.Settings) (*formula.PackageInfo, error) {
	libs, err := CollectLibs(filepath.Join(root, "lib"))
	if err != nil {
		return nil, err
	}
	info := &formula.PackageInfo{
		RootDir:     root,
		IncludeDirs: []string{"include"},
		LibDirs:     []string{"lib"},
		BinDirs:     []string{"bin"},
		Libs:        libs,
	}
	if s.OS == formula.Linux {
		info.SystemLibs = append(info.SystemLibs, "pthread")
	}
	return info, nil
}
