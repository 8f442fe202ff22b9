// Package profile loads build profiles: YAML files naming settings and options.
//
//	settings:
//	  os: Linux
//	  arch: x86_64
//	  compiler: clang
//	  compiler.libcxx: libc++
//	  build_type: Release
//	options:
//	  shared: false
//	  zlib: true
package profile

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/goplus/botanpkg/formula"
)

// Profile is the raw content of a profile file.
type Profile struct {
	Settings map[string]string `json:"settings,omitempty"`
	Options  map[string]any    `json:"options,omitempty"`
}

// Load reads the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse parses profile YAML. Unknown top-level fields are errors.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Apply returns s and o overridden by the profile.
func (p *Profile) Apply(s formula.Settings, o formula.Options) (formula.Settings, formula.Options, error) {
	if p == nil {
		return s, o, nil
	}
	var err error
	for _, k := range sortedKeys(p.Settings) {
		if s, err = s.Set(k, p.Settings[k]); err != nil {
			return s, o, err
		}
	}
	for _, k := range sortedKeys(p.Options) {
		v, err := optionValue(p.Options[k])
		if err != nil {
			return s, o, fmt.Errorf("option %s: %w", k, err)
		}
		if o, err = o.Set(k, v); err != nil {
			return s, o, err
		}
	}
	return s, o, nil
}

// optionValue accepts YAML booleans as well as the spellings of formula.ParseBool,
// quoted or not.
func optionValue(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		return formula.ParseBool(v)
	case float64:
		return formula.ParseBool(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return false, fmt.Errorf("invalid value %v", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
