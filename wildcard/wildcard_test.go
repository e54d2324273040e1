package wildcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		pattern string
		name    string
		match   bool
	}{
		{"*.txt", "a.txt", true},
		{"*.txt", ".txt", true},
		{"*.txt", "a.tx", false},
		{"*.TXT", "readme.txt", true},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"a?c", "abbc", false},
		{"*", "", true},
		{"*", "anything.bin", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"??", "ab", true},
		{"??", "a", false},
		{"?*", "", false},
		{"?*", "x", true},
		{"*?", "", false},
		{"*.*", "config.cfg", true},
		{"*.*", "config", false},
		{"", "", true},
		{"", "a", false},
		{"LOG*.TXT", "log0001.txt", true},
		{"log*.txt", "log0001.txx", false},
		{"*a*a*a", "bananas", false},
		{"*a*a*a", "banana", true},
		{"*a*a*a", "bananaa", true},
		{"exact", "EXACT", true},
		{"exact", "exactly", false},
	}
	for _, c := range cases {
		assert.Equal(c.match, Match(c.pattern, c.name), "pattern=%q name=%q", c.pattern, c.name)
	}
}
