// Package wildcard matches directory entry names against DOS style patterns.
//
// Literal characters compare case-insensitively, '?' consumes exactly one
// character and '*' consumes zero or more. A run of wildcards collapses into
// "skip N mandatory characters, then optionally an unbounded tail".
package wildcard

import (
	"unicode"
)

const end = rune(-1)

// Match reports whether name matches pattern.
func Match(pattern, name string) bool {
	return match([]rune(pattern), []rune(name), 0, false)
}

func at(s []rune, i int) rune {
	if i < len(s) {
		return unicode.ToUpper(s[i])
	}
	return end
}

func isWild(r rune) bool {
	return r == '?' || r == '*'
}

// match tries pat against nam after skipping skip name characters. With inf
// set the attempt is retried at every later offset of nam; recursion depth is
// bounded by the number of wildcard runs in the pattern.
func match(pat, nam []rune, skip int, inf bool) bool {
	for ; skip > 0; skip-- {
		if len(nam) == 0 {
			return false
		}
		nam = nam[1:]
	}
	if len(pat) == 0 && inf {
		return true
	}

	for {
		pp, np := 0, 0
		var nc rune
		for {
			if pp < len(pat) && isWild(pat[pp]) {
				nm, nx := 0, false
				for pp < len(pat) && isWild(pat[pp]) {
					if pat[pp] == '?' {
						nm++
					} else {
						nx = true
					}
					pp++
				}
				if match(pat[pp:], nam[np:], nm, nx) {
					return true
				}
				nc = at(nam, np)
				break
			}
			pc := at(pat, pp)
			nc = at(nam, np)
			pp++
			np++
			if pc != nc {
				break
			}
			if pc == end {
				return true
			}
		}
		if len(nam) > 0 {
			nam = nam[1:]
		}
		if !inf || nc == end {
			return false
		}
	}
}
