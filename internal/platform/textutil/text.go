package textutil

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips all markup from operator-entered free text and trims whitespace.
// Stored notes and messages are rendered verbatim in admin and reseller UIs.
func Sanitize(value string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(value))
}

// Fold normalises text for case-insensitive substring matching. NFKC folds
// width and compatibility variants so queries match regardless of input method.
func Fold(value string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(value)))
}

// ContainsFold reports whether haystack contains needle under Fold normalisation.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}
