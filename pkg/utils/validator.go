package utils

import "strings"

// IsEmpty reports whether s is empty or contains only whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
