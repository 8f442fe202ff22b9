package formula

import (
	"strings"
	"testing"
)

func TestMatrix_Combinations(t *testing.T) {
	tests := []struct {
		name   string
		matrix Matrix
		want   []string
	}{
		{
			name: "require with options",
			matrix: Matrix{
				Require: map[string][]string{
					"os":   {"Linux"},
					"arch": {"x86", "x86_64"},
				},
				Options: map[string][]string{
					"zlib": {"zlibON", "zlibOFF"},
				},
			},
			// sorted keys: arch, os
			want: []string{
				"x86-Linux|zlibON",
				"x86-Linux|zlibOFF",
				"x86_64-Linux|zlibON",
				"x86_64-Linux|zlibOFF",
			},
		},
		{
			name: "only options",
			matrix: Matrix{
				Options: map[string][]string{
					"zlib":   {"zlibON"},
					"shared": {"sharedON", "sharedOFF"},
				},
			},
			want: []string{
				"sharedON-zlibON",
				"sharedOFF-zlibON",
			},
		},
		{
			name:   "empty matrix",
			matrix: Matrix{},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.matrix.Combinations()
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("Matrix.Combinations() = %v, want %v", got, tt.want)
			}
			if n := tt.matrix.CombinationCount(); n != len(tt.want) {
				t.Errorf("Matrix.CombinationCount() = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestNewMatrix(t *testing.T) {
	s := Settings{OS: Linux, Arch: "x86_64", Compiler: Clang, Libcxx: "libc++", BuildType: "Release"}
	m := NewMatrix(s, DefaultOptions())
	if n := m.CombinationCount(); n != 1 {
		t.Fatalf("CombinationCount() = %d, want 1", n)
	}
	want := "x86_64-Release-clang-libc++-Linux|" +
		"amalgamationON-bzip2OFF-debug_infoOFF-opensslOFF-quietON-sharedON-single_amalgamationOFF-sqlite3OFF-zlibOFF"
	if got := m.String(); got != want {
		t.Errorf("String() = %q\nwant %q", got, want)
	}
}

func TestNewMatrix_Normalizes(t *testing.T) {
	s := Settings{OS: Windows, Arch: "x86", Compiler: VisualStudio, Libcxx: "libc++", BuildType: "Debug"}
	o := Options{SingleAmalgamation: true}
	key := NewMatrix(s, o).String()
	if !strings.Contains(key, "amalgamationON") {
		t.Errorf("build key %q does not record the implied amalgamation", key)
	}
	if strings.Contains(key, "libc++") {
		t.Errorf("build key %q carries libcxx on Windows", key)
	}
	if strings.Contains(key, " ") {
		t.Errorf("build key %q contains spaces", key)
	}
}

func TestFullMatrix(t *testing.T) {
	m := FullMatrix(Settings{OS: Linux, Arch: "x86_64", Compiler: GCC, BuildType: "Release"})
	if n := m.CombinationCount(); n != 512 {
		t.Fatalf("CombinationCount() = %d, want 512", n)
	}
	seen := make(map[string]bool)
	for _, c := range m.Combinations() {
		if seen[c] {
			t.Fatalf("duplicate combination %q", c)
		}
		seen[c] = true
	}
}
