package formula

import (
	"fmt"
	"strings"
)

// Option names, in the order they are listed to users.
const (
	OptAmalgamation       = "amalgamation"
	OptBzip2              = "bzip2"
	OptDebugInfo          = "debug_info"
	OptOpenSSL            = "openssl"
	OptQuiet              = "quiet"
	OptShared             = "shared"
	OptSingleAmalgamation = "single_amalgamation"
	OptSqlite3            = "sqlite3"
	OptZlib               = "zlib"
)

// OptionNames returns all option names in sorted order.
func OptionNames() []string {
	return []string{
		OptAmalgamation,
		OptBzip2,
		OptDebugInfo,
		OptOpenSSL,
		OptQuiet,
		OptShared,
		OptSingleAmalgamation,
		OptSqlite3,
		OptZlib,
	}
}

// Options holds the on/off switches of a build.
type Options struct {
	Amalgamation       bool `json:"amalgamation"`
	Bzip2              bool `json:"bzip2"`
	DebugInfo          bool `json:"debug_info"`
	OpenSSL            bool `json:"openssl"`
	Quiet              bool `json:"quiet"`
	Shared             bool `json:"shared"`
	SingleAmalgamation bool `json:"single_amalgamation"`
	Sqlite3            bool `json:"sqlite3"`
	Zlib               bool `json:"zlib"`
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{
		Amalgamation: true,
		Quiet:        true,
		Shared:       true,
	}
}

// Normalize returns a copy of o with derived options applied:
// a single amalgamation file implies amalgamation.
func (o Options) Normalize() Options {
	if o.SingleAmalgamation {
		o.Amalgamation = true
	}
	return o
}

func (o *Options) field(name string) (*bool, error) {
	switch name {
	case OptAmalgamation:
		return &o.Amalgamation, nil
	case OptBzip2:
		return &o.Bzip2, nil
	case OptDebugInfo:
		return &o.DebugInfo, nil
	case OptOpenSSL:
		return &o.OpenSSL, nil
	case OptQuiet:
		return &o.Quiet, nil
	case OptShared:
		return &o.Shared, nil
	case OptSingleAmalgamation:
		return &o.SingleAmalgamation, nil
	case OptSqlite3:
		return &o.Sqlite3, nil
	case OptZlib:
		return &o.Zlib, nil
	}
	return nil, fmt.Errorf("unknown option %q", name)
}

// Get returns the value of the named option.
func (o Options) Get(name string) (bool, error) {
	p, err := o.field(name)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// Set returns a copy of o with the named option set to value.
func (o Options) Set(name string, value bool) (Options, error) {
	p, err := o.field(name)
	if err != nil {
		return o, err
	}
	*p = value
	return o, nil
}

// ParseBool parses an option value as written in profiles and on the command line.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
