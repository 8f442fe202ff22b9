package formula

import (
	"sort"
	"strings"
)

// Matrix lists the values a build can take: Require holds settings, Options
// holds the option switches.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// NewMatrix projects a single settings/options pair to a matrix with exactly one
// combination. Its String form is the build key of that pair.
func NewMatrix(s Settings, o Options) Matrix {
	m := Matrix{
		Require: map[string][]string{
			"arch":       {keyValue(s.Arch)},
			"build_type": {keyValue(s.BuildType)},
			"compiler":   {keyValue(s.Compiler)},
			"os":         {keyValue(s.OS)},
		},
		Options: map[string][]string{},
	}
	if s.Libcxx != "" && s.OS != Windows {
		m.Require["libcxx"] = []string{keyValue(s.Libcxx)}
	}
	o = o.Normalize()
	for _, name := range OptionNames() {
		v, _ := o.Get(name)
		m.Options[name] = []string{switchValue(name, v)}
	}
	return m
}

// FullMatrix returns the matrix of every option combination for the given settings.
func FullMatrix(s Settings) Matrix {
	m := NewMatrix(s, DefaultOptions())
	for _, name := range OptionNames() {
		m.Options[name] = []string{switchValue(name, true), switchValue(name, false)}
	}
	return m
}

func switchValue(name string, on bool) string {
	if on {
		return name + "ON"
	}
	return name + "OFF"
}

func keyValue(v string) string {
	return strings.ReplaceAll(v, " ", "_")
}

// String returns the first combination of the matrix, which for a matrix made by
// NewMatrix is its only one.
func (m Matrix) String() string {
	combos := m.Combinations()
	if len(combos) == 0 {
		return ""
	}
	return combos[0]
}

// Combinations returns all cartesian product combinations of the matrix.
// Keys are sorted alphabetically, and combinations are built layer by layer.
// Require fields are joined with "-", then combined with options using "|".
func (m Matrix) Combinations() []string {
	cartesian := func(kvs map[string][]string) []string {
		if len(kvs) == 0 {
			return nil
		}

		keys := make([]string, 0, len(kvs))
		for k := range kvs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := make([]string, len(kvs[keys[0]]))
		copy(result, kvs[keys[0]])

		for _, k := range keys[1:] {
			values := kvs[k]
			next := make([]string, 0, len(result)*len(values))
			for _, prev := range result {
				for _, v := range values {
					next = append(next, prev+"-"+v)
				}
			}
			result = next
		}
		return result
	}

	requireCombos := cartesian(m.Require)
	optionsCombos := cartesian(m.Options)

	if len(requireCombos) == 0 {
		return optionsCombos
	}
	if len(optionsCombos) == 0 {
		return requireCombos
	}

	result := make([]string, 0, len(requireCombos)*len(optionsCombos))
	for _, req := range requireCombos {
		for _, opt := range optionsCombos {
			result = append(result, req+"|"+opt)
		}
	}
	return result
}

// CombinationCount returns the total number of cartesian product combinations.
func (m Matrix) CombinationCount() int {
	countPart := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		count := 1
		for _, v := range kvs {
			count *= len(v)
		}
		return count
	}

	requireCount := countPart(m.Require)
	optionsCount := countPart(m.Options)

	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}
