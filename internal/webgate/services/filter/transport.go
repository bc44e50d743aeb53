package filter

import (
	"net/url"
	"strings"

	"github.com/haukened/rr-webgate/internal/webgate/common/utils"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
)

const (
	secureScheme     = "https://"
	telScheme        = "tel:"
	javascriptScheme = "javascript:"
)

// IsSecureTransport reports whether raw may travel over the network at all.
// about:blank is neutral and always passes. Anything else must use the https
// scheme, parse, and name a host; malformed URLs fail closed.
func IsSecureTransport(raw string) bool {
	if raw == domain.BlankPage {
		return true
	}
	_, ok := secureHost(raw)
	return ok
}

// secureHost returns the canonical host of an https URL, or false if raw is
// not a well-formed https URL.
func secureHost(raw string) (string, bool) {
	if !hasSchemePrefix(raw, secureScheme) {
		return "", false
	}
	host := hostOf(raw)
	return host, host != ""
}

// hostOf returns the canonical host of raw, or "" if it has none or does not parse.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return utils.CanonicalHost(u.Hostname())
}

// hasSchemePrefix compares the scheme prefix case-insensitively, as schemes are.
func hasSchemePrefix(raw, prefix string) bool {
	return len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix)
}

// IsTelURL reports whether raw is a tel: URL.
func IsTelURL(raw string) bool { return hasSchemePrefix(raw, telScheme) }

// IsJavaScriptURL reports whether raw is a javascript: URL.
func IsJavaScriptURL(raw string) bool { return hasSchemePrefix(raw, javascriptScheme) }
