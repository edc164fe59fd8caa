// Package normalize holds canonical-form helpers for user-supplied values.
package normalize

import "strings"

// Email trims surrounding whitespace and lower-cases the address so that
// lookups and the unique email index always see one canonical form.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
