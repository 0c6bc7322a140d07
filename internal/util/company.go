package util

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanCompanyName trims a user selection and collapses internal whitespace,
// so "  Acme\n  Corp " becomes "Acme Corp".
func CleanCompanyName(raw string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
}
