package formula

import (
	"fmt"
	"slices"
)

// Requirement is a version-constrained dependency on another library.
type Requirement struct {
	Name       string `json:"name"`       // library name, e.g. "zlib"
	Constraint string `json:"constraint"` // version constraint, e.g. ">=1.2"
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s/[%s]", r.Name, r.Constraint)
}

// Requirements collects the dependencies declared by a recipe.
type Requirements struct {
	reqs []Requirement
}

// List returns the collected requirements in declaration order.
func (p *Requirements) List() []Requirement {
	return slices.Clone(p.reqs)
}

// Require declares that the package being built depends on the library name at a
// version satisfying constraint.
func (p *Requirements) Require(name, constraint string) {
	p.reqs = append(p.reqs, Requirement{Name: name, Constraint: constraint})
}
