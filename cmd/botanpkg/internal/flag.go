package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type keyValue struct {
	Key, Value string
}

// keyValues is a repeatable key=value flag.
type keyValues []keyValue

var _ pflag.Value = (*keyValues)(nil)

func (kv *keyValues) String() string {
	parts := make([]string, len(*kv))
	for i, p := range *kv {
		parts[i] = p.Key + "=" + p.Value
	}
	return strings.Join(parts, ",")
}

func (kv *keyValues) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("%q is not key=value", s)
	}
	*kv = append(*kv, keyValue{Key: k, Value: strings.TrimSpace(v)})
	return nil
}

func (kv *keyValues) Type() string {
	return "key=value"
}
