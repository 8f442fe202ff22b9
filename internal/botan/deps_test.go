package botan

import (
	"strings"
	"testing"

	"github.com/goplus/botanpkg/formula"
)

func TestRequirements(t *testing.T) {
	if got := Requirements(formula.DefaultOptions()); len(got) != 0 {
		t.Errorf("Requirements(defaults) = %v, want none", got)
	}
	o := formula.Options{Bzip2: true, OpenSSL: true, Zlib: true, Sqlite3: true}
	got := Requirements(o)
	want := []string{"bzip2/[>=1.0]", "openssl/[>=1.0.2m]", "zlib/[>=1.2]", "sqlite3/[>=3.18]"}
	if len(got) != len(want) {
		t.Fatalf("Requirements() = %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("Requirements()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		constraint, version string
		want                bool
	}{
		{">=1.2", "1.2.11", true},
		{">=1.2", "1.1.4", false},
		{">=1.0", "1.0.8", true},
		{">=3.18", "3.21.0", true},
		{">=1.0.2m", "1.0.2m", true},
		{">=1.0.2m", "1.0.2n", true},
		{">=1.0.2m", "1.0.2k", false},
		{">=1.0.2m", "1.1.0", true},
		{">=1.0.2m", "3.0.13", true},
		{"<1.0.2m", "1.0.2a", true},
		{"1.0.2m", "1.0.2m", true},
		{"!=1.0.2m", "1.0.2m", false},
	}
	for _, tt := range tests {
		got, err := Satisfies(tt.constraint, tt.version)
		if err != nil {
			t.Errorf("Satisfies(%q, %q): %v", tt.constraint, tt.version, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.constraint, tt.version, got, tt.want)
		}
	}
}

func TestSatisfies_Invalid(t *testing.T) {
	if _, err := Satisfies(">=", "1.0"); err == nil {
		t.Error("expected error for empty constraint version")
	}
	if _, err := Satisfies(">>1.0m", "1.0m"); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestResolve(t *testing.T) {
	provided := map[string][2]string{
		"zlib":    {"1.2.13", "/deps/zlib"},
		"openssl": {"1.0.2k", "/deps/openssl"},
	}
	lookup := func(name string) (string, string, bool) {
		p, ok := provided[name]
		return p[0], p[1], ok
	}

	got, err := Resolve(Requirements(formula.Options{Zlib: true}), lookup)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Version != "1.2.13" || got[0].Dir != "/deps/zlib" {
		t.Errorf("Resolve(zlib) = %+v", got)
	}

	_, err = Resolve(Requirements(formula.Options{OpenSSL: true}), lookup)
	if err == nil || !strings.Contains(err.Error(), "openssl@1.0.2k") {
		t.Errorf("Resolve(old openssl) error = %v", err)
	}

	_, err = Resolve(Requirements(formula.Options{Bzip2: true}), lookup)
	if err == nil || !strings.Contains(err.Error(), "not provided") {
		t.Errorf("Resolve(missing bzip2) error = %v", err)
	}
}
