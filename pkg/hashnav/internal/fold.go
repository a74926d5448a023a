package internal

import "golang.org/x/text/cases"

// Fold returns the Unicode case-folded form of s. A fresh Caser is created
// per call since Casers carry state and must not be shared across goroutines.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under full Unicode case folding.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}
