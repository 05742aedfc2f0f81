// Package phone normalizes Israeli phone numbers into E.164 form.
package phone

import (
	"regexp"
	"strings"
)

// Israeli mobile/landline numbers: +972, a non-zero area digit, then
// 7-8 digits.
var israelE164 = regexp.MustCompile(`^\+972[2-9]\d{7,8}$`)

// Normalize converts raw user input into canonical E.164 form. The
// second return value is false when the input cannot be a valid
// Israeli number. Pure and deterministic; Normalize of its own output
// returns the same string.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	switch {
	case strings.HasPrefix(normalized, "0"):
		// Local format 0XX-XXX-XXXX.
		normalized = "+972" + normalized[1:]
	case strings.HasPrefix(normalized, "972"):
		normalized = "+" + normalized
	case !strings.HasPrefix(normalized, "+972"):
		// No country code, assume domestic.
		normalized = "+972" + normalized
	}

	if !israelE164.MatchString(normalized) {
		return "", false
	}
	return normalized, true
}
