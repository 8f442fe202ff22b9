package botan

import (
	"golang.org/x/mod/semver"

	"github.com/goplus/botanpkg/formula"
)

// FileEditor edits generated files in the source tree.
type FileEditor interface {
	ReplaceInFile(name, old, new string) error
}

// Patch is a workaround for an upstream defect, applied between configure and build.
type Patch interface {
	// Name identifies the patch in logs.
	Name() string
	// Applies reports whether the defect exists for these settings and upstream version.
	Applies(s formula.Settings, version string) bool
	// Apply edits the configured source tree.
	Apply(ed FileEditor) error
}

// Patches lists every known workaround.
var Patches = []Patch{
	installPyPatch{},
}

// PatchesFor returns the patches that apply to a build.
func PatchesFor(s formula.Settings, version string) []Patch {
	var ps []Patch
	for _, p := range Patches {
		if p.Applies(s, version) {
			ps = append(ps, p)
		}
	}
	return ps
}

// installPyPatch works around the generated Windows Makefile calling
// install.py without an interpreter (randombit/botan#1297).
type installPyPatch struct{}

// installPyFixedIn is the first release whose Makefile invokes install.py
// through python itself.
const installPyFixedIn = "v2.3.0"

func (installPyPatch) Name() string { return "makefile-install-py" }

func (installPyPatch) Applies(s formula.Settings, version string) bool {
	if s.OS != formula.Windows {
		return false
	}
	v := "v" + version
	if !semver.IsValid(v) {
		return true
	}
	return semver.Compare(v, installPyFixedIn) < 0
}

func (installPyPatch) Apply(ed FileEditor) error {
	return ed.ReplaceInFile("Makefile",
		`$(SCRIPTS_DIR)\install.py`,
		`python $(SCRIPTS_DIR)\install.py`)
}
