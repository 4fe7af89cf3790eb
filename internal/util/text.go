package util

import "strings"

// SanitizePostgresText makes a string safe for a Postgres TEXT column:
// invalid UTF-8 sequences are dropped, as are NUL bytes, which Postgres
// rejects even in valid UTF-8.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}
	valid := strings.ToValidUTF8(value, "")
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, valid)
}
