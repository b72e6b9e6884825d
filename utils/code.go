// utils/code.go
package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCode canonicalizes a scanned QR payload before comparison.
// Scanner apps differ in how they emit composed vs decomposed unicode and
// surrounding whitespace; the match itself stays case-sensitive.
func NormalizeCode(code string) string {
	return norm.NFC.String(strings.TrimSpace(code))
}
