package utils

import "regexp"

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password portion of a database connection string for logging.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskKey keeps the first and last two characters of a credential visible.
// Anything shorter than six characters is fully masked.
func MaskKey(s string) string {
	if len(s) < 6 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
