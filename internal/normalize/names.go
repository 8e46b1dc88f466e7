package normalize

import "strings"

// canonicalName lowercases and collapses runs of whitespace. It deliberately
// does NOT sort or reorder tokens: "Boberto Bob" must not equal "Bob Boberto".
func canonicalName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// namesEqual compares two display names case-insensitively with whitespace
// normalized, preserving token order. This is an independent precision filter
// layered on top of the vendor's own match flags, which have been observed to
// be too permissive (a "name_exact" flag on a superset-name hit).
func namesEqual(a, b string) bool {
	ca, cb := canonicalName(a), canonicalName(b)
	if ca == "" || cb == "" {
		return false
	}
	return ca == cb
}
