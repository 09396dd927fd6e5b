package strutils

import "strings"

// NormalizeEmail makes emails comparable across the Admin API and CSV
// exports, which disagree on casing for some accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func EmailLooksValid(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}
