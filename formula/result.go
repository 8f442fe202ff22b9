package formula

import (
	"path/filepath"
	"strings"
)

// PackageInfo is what a built package reports to the packages consuming it.
type PackageInfo struct {
	RootDir     string   `json:"root_dir"`
	IncludeDirs []string `json:"include_dirs"` // relative to RootDir
	LibDirs     []string `json:"lib_dirs"`     // relative to RootDir
	BinDirs     []string `json:"bin_dirs"`     // relative to RootDir
	Libs        []string `json:"libs"`
	SystemLibs  []string `json:"system_libs,omitempty"`
}

// Metadata renders the package info as compiler and linker flags in the style of
// pkg-config --cflags --libs.
func (p *PackageInfo) Metadata() string {
	var flags []string
	for _, dir := range p.IncludeDirs {
		flags = append(flags, "-I"+filepath.Join(p.RootDir, dir))
	}
	for _, dir := range p.LibDirs {
		flags = append(flags, "-L"+filepath.Join(p.RootDir, dir))
	}
	for _, lib := range p.Libs {
		flags = append(flags, "-l"+lib)
	}
	for _, lib := range p.SystemLibs {
		flags = append(flags, "-l"+lib)
	}
	return strings.Join(flags, " ")
}
