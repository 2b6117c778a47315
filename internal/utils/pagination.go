// Package utils holds small helpers shared across layers. Currently that is
// the lenient integer parsing used for page and page_size query parameters.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer. Handlers use it so a malformed page number degrades to the
// default rather than a 400.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
