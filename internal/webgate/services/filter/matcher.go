package filter

import (
	"strings"

	"github.com/haukened/rr-webgate/internal/webgate/domain"
)

// Matcher evaluates the allow and block collections of a RuleSet.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	rules domain.RuleSet
	exact HostIndex
}

// NewMatcher returns a Matcher over rules. When exact is nil the exact-host
// collection is scanned linearly.
func NewMatcher(rules domain.RuleSet, exact HostIndex) *Matcher {
	return &Matcher{rules: rules, exact: exact}
}

// MatchesAllow reports whether a request is allow-listed and by which rule.
// The four tests form a disjunction; the first one that holds wins.
// host must be canonical; raw is the URL exactly as supplied.
func (m *Matcher) MatchesAllow(host, raw string) (domain.RuleEntry, bool) {
	if host != "" {
		if m.exact != nil {
			if m.exact.Contains(host) {
				return domain.RuleEntry{Collection: domain.CollectionExactHost, Value: host}, true
			}
		} else if v, ok := firstMatch(m.rules.Collection(domain.CollectionExactHost), func(e string) bool { return host == e }); ok {
			return domain.RuleEntry{Collection: domain.CollectionExactHost, Value: v}, true
		}
		if v, ok := firstMatch(m.rules.Collection(domain.CollectionHostSuffix), func(e string) bool { return strings.HasSuffix(host, e) }); ok {
			return domain.RuleEntry{Collection: domain.CollectionHostSuffix, Value: v}, true
		}
		if v, ok := firstMatch(m.rules.Collection(domain.CollectionHostPrefix), func(e string) bool { return strings.HasPrefix(host, e) }); ok {
			return domain.RuleEntry{Collection: domain.CollectionHostPrefix, Value: v}, true
		}
	}
	if v, ok := firstMatch(m.rules.Collection(domain.CollectionURLAllow), func(e string) bool { return strings.Contains(raw, e) }); ok {
		return domain.RuleEntry{Collection: domain.CollectionURLAllow, Value: v}, true
	}
	return domain.RuleEntry{}, false
}

// MatchesBlock reports whether raw contains any block substring, and which.
// Entries are plain substrings, never patterns.
func (m *Matcher) MatchesBlock(raw string) (domain.RuleEntry, bool) {
	if v, ok := firstMatch(m.rules.Collection(domain.CollectionURLBlock), func(e string) bool { return strings.Contains(raw, e) }); ok {
		return domain.RuleEntry{Collection: domain.CollectionURLBlock, Value: v}, true
	}
	return domain.RuleEntry{}, false
}

func firstMatch(values []string, pred func(string) bool) (string, bool) {
	for _, v := range values {
		if pred(v) {
			return v, true
		}
	}
	return "", false
}

// MatchesAllow reports whether raw is allow-listed by rules. The transport is
// not checked here; a URL that does not parse can still match an allow substring.
func MatchesAllow(rules domain.RuleSet, raw string) bool {
	host := hostOf(raw)
	_, ok := NewMatcher(rules, nil).MatchesAllow(host, raw)
	return ok
}

// MatchesBlock reports whether raw contains any block substring of rules.
func MatchesBlock(rules domain.RuleSet, raw string) bool {
	_, ok := NewMatcher(rules, nil).MatchesBlock(raw)
	return ok
}
