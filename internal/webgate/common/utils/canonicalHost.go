package utils

import "strings"

// CanonicalHost returns a hostname in the form used for rule matching:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, so "maps.apple.com." and "maps.apple.com" compare equal.
func CanonicalHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.ToLower(host)
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return host
}
