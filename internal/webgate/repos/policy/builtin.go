// Package policy holds the compiled-in admission policy and the optional
// operator policy file loader.
package policy

import "github.com/haukened/rr-webgate/internal/webgate/domain"

// builtin is the product policy as a {collection, entry} table.
var builtin = []domain.RuleEntry{
	// first-party map, tile and search hosts
	{Collection: domain.CollectionExactHost, Value: "maps.apple.com"},
	{Collection: domain.CollectionExactHost, Value: "cdn.apple-mapkit.com"},
	{Collection: domain.CollectionExactHost, Value: "sat-cdn.apple-mapkit.com"},

	// listing photos from third-party review sites,
	// e.g. https://is1-ssl.mzstatic.com and https://is3-ssl.mzstatic.com
	{Collection: domain.CollectionHostSuffix, Value: "-ssl.mzstatic.com"},
	{Collection: domain.CollectionHostSuffix, Value: ".4sqi.net"},
	{Collection: domain.CollectionExactHost, Value: "media-cdn.tripadvisor.com"},
	{Collection: domain.CollectionHostSuffix, Value: ".fl.yelpcdn.com"},
	{Collection: domain.CollectionExactHost, Value: "images.otstatic.com"},
	{Collection: domain.CollectionExactHost, Value: "resizer.otstatic.com"},

	// platform icons under the review summary
	{Collection: domain.CollectionExactHost, Value: "gspe21-ssl.ls.apple.com"},

	// telemetry hosts
	{Collection: domain.CollectionURLBlock, Value: "gsp10.apple-mapkit.com"},
	{Collection: domain.CollectionURLBlock, Value: "xp.apple.com"},

	// analytics endpoints
	{Collection: domain.CollectionURLBlock, Value: "maps.apple.com/data/performanceAnalytics"},
	{Collection: domain.CollectionURLBlock, Value: "maps.apple.com/data/analyticsStatus"},
	{Collection: domain.CollectionURLBlock, Value: "/mw/v1/reportAnalytics"},
	{Collection: domain.CollectionURLBlock, Value: "/reportAnalytics"},
	{Collection: domain.CollectionURLBlock, Value: "/report/2/xp_amp_web_perf_log"},
	{Collection: domain.CollectionURLBlock, Value: "/xp_amp_web_perf_log"},
}

// Entries returns a copy of the compiled-in policy table.
func Entries() []domain.RuleEntry {
	out := make([]domain.RuleEntry, len(builtin))
	copy(out, builtin)
	return out
}

// Build returns the compiled-in RuleSet. It is idempotent and has no failure
// modes; the table is validated by tests.
func Build() domain.RuleSet {
	return domain.MustRuleSet(builtin)
}

// Compose merges the compiled-in table with entries loaded from a policy
// file. When replace is true the file entries are used on their own.
func Compose(file []domain.RuleEntry, replace bool) (domain.RuleSet, error) {
	if replace {
		return domain.NewRuleSet(file)
	}
	all := make([]domain.RuleEntry, 0, len(builtin)+len(file))
	all = append(all, builtin...)
	all = append(all, file...)
	return domain.NewRuleSet(all)
}
