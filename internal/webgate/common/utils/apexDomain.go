package utils

import "golang.org/x/net/publicsuffix"

// GetApexDomain returns the registrable domain (eTLD+1) for host.
// Denial records carry it so audits can be grouped by site owner.
// IP literals and bare suffixes fall back to the canonical host.
func GetApexDomain(host string) string {
	host = CanonicalHost(host)
	if host == "" {
		return ""
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}
