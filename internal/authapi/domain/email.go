package domain

import "strings"

// NormalizeEmail canonicalizes an email address for comparison and storage.
// Every email lookup and write goes through this, which is what makes the
// unique-email constraint case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
