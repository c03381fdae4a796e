package shop

import "strings"

// ValidEmail applies the structural check used at checkout: exactly one "@"
// with non-empty local and domain parts, and a "." somewhere in the domain.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	domain := s[at+1:]
	if domain == "" {
		return false
	}
	return strings.Contains(domain, ".")
}
