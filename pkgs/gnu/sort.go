// Package gnu orders version strings the way GNU "sort -V" and dpkg do, which
// copes with versions such as "1.0.2m" that are not semantic versions.
package gnu

import "strings"

// Compare compares two version strings and returns -1 if a < b, 0 if a == b
// and 1 if a > b.
//
// Both strings are consumed as alternating runs of non-digits and digits.
// Non-digit runs compare character by character with letters before other
// symbols and '~' before anything, even the end of the string. Digit runs
// compare by numeric value, ignoring leading zeros.
func Compare(a, b string) int {
	for a != "" || b != "" {
		var sa, sb string
		sa, a = splitRun(a, false)
		sb, b = splitRun(b, false)
		if c := compareText(sa, sb); c != 0 {
			return c
		}
		sa, a = splitRun(a, true)
		sb, b = splitRun(b, true)
		if c := compareNumber(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

// splitRun cuts the leading run of digits (or non-digits) off s.
func splitRun(s string, digits bool) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

func compareText(a, b string) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		oa, ob := weightAt(a, i), weightAt(b, i)
		if oa != ob {
			return sign(oa - ob)
		}
	}
	return 0
}

func compareNumber(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

// weightAt returns the sort weight of s[i]; past the end of s the weight is 0.
func weightAt(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case c == '~':
		return -1
	case isAlpha(c):
		return int(c)
	default:
		return int(c) + 256
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
