// Package ordinal converts spoken ordinal references ("third", "3rd", "3")
// into 1-based positions. Range validation against a live index is the
// caller's job; this package only answers "is this an ordinal, and which".
package ordinal

import (
	"strconv"
	"strings"
)

// Word forms recognized by Resolve. Twenty entries covers anything a page
// index realistically holds; digit forms have no ceiling.
var words = map[string]int{
	"first":       1,
	"second":      2,
	"third":       3,
	"fourth":      4,
	"fifth":       5,
	"sixth":       6,
	"seventh":     7,
	"eighth":      8,
	"ninth":       9,
	"tenth":       10,
	"eleventh":    11,
	"twelfth":     12,
	"thirteenth":  13,
	"fourteenth":  14,
	"fifteenth":   15,
	"sixteenth":   16,
	"seventeenth": 17,
	"eighteenth":  18,
	"nineteenth":  19,
	"twentieth":   20,

	// Cardinal words come through speech recognition just as often.
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
	"six":   6,
	"seven": 7,
	"eight": 8,
	"nine":  9,
	"ten":   10,
}

var suffixes = []string{"st", "nd", "rd", "th"}

// Resolve parses token as an ordinal and returns its 1-based position.
// Accepts word forms ("third"), digit forms ("3"), and suffixed digit forms
// ("3rd"). Case-insensitive. Returns false for anything else, including
// zero and negative numbers.
func Resolve(token string) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return 0, false
	}

	if n, ok := words[t]; ok {
		return n, true
	}

	for _, suf := range suffixes {
		if strings.HasSuffix(t, suf) && len(t) > len(suf) {
			body := t[:len(t)-len(suf)]
			if n, err := strconv.Atoi(body); err == nil && n > 0 {
				return n, true
			}
		}
	}

	if n, err := strconv.Atoi(t); err == nil && n > 0 {
		return n, true
	}

	return 0, false
}
