package domain

import (
	"fmt"
	"slices"
)

// RuleSet is the immutable allow/deny policy of a session.
//
// Membership in any of the four allow collections is sufficient for a request
// to be allow-listed; a URL containing any block substring is vetoed, and the
// veto always wins over an allow. A RuleSet is never mutated after
// construction, so it may be shared between goroutines without locking.
type RuleSet struct {
	exactHosts   []string
	hostSuffixes []string
	hostPrefixes []string
	allowSubs    []string
	blockSubs    []string
}

// NewRuleSet builds a RuleSet from policy entries. Entries are brought into
// canonical form and validated; duplicates within a collection are dropped,
// keeping first-seen order.
func NewRuleSet(entries []RuleEntry) (RuleSet, error) {
	var rs RuleSet
	seen := make(map[RuleEntry]struct{}, len(entries))
	for i, e := range entries {
		e = e.Canonical()
		if err := e.Validate(); err != nil {
			return RuleSet{}, fmt.Errorf("rule %d: %w", i, err)
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		switch e.Collection {
		case CollectionExactHost:
			rs.exactHosts = append(rs.exactHosts, e.Value)
		case CollectionHostSuffix:
			rs.hostSuffixes = append(rs.hostSuffixes, e.Value)
		case CollectionHostPrefix:
			rs.hostPrefixes = append(rs.hostPrefixes, e.Value)
		case CollectionURLAllow:
			rs.allowSubs = append(rs.allowSubs, e.Value)
		case CollectionURLBlock:
			rs.blockSubs = append(rs.blockSubs, e.Value)
		}
	}
	return rs, nil
}

// MustRuleSet is like NewRuleSet but panics on invalid entries. It is meant
// for compiled-in policy tables that are covered by tests.
func MustRuleSet(entries []RuleEntry) RuleSet {
	rs, err := NewRuleSet(entries)
	if err != nil {
		panic(err)
	}
	return rs
}

// ExactHosts returns a copy of the exact-host collection.
func (rs RuleSet) ExactHosts() []string { return slices.Clone(rs.exactHosts) }

// HostSuffixes returns a copy of the host-suffix collection.
func (rs RuleSet) HostSuffixes() []string { return slices.Clone(rs.hostSuffixes) }

// HostPrefixes returns a copy of the host-prefix collection.
func (rs RuleSet) HostPrefixes() []string { return slices.Clone(rs.hostPrefixes) }

// AllowSubstrings returns a copy of the allow-substring collection.
func (rs RuleSet) AllowSubstrings() []string { return slices.Clone(rs.allowSubs) }

// BlockSubstrings returns a copy of the block-substring collection.
func (rs RuleSet) BlockSubstrings() []string { return slices.Clone(rs.blockSubs) }

// Collection returns the values of a single collection without copying.
// Callers must not modify the returned slice.
func (rs RuleSet) Collection(c RuleCollection) []string {
	switch c {
	case CollectionExactHost:
		return rs.exactHosts
	case CollectionHostSuffix:
		return rs.hostSuffixes
	case CollectionHostPrefix:
		return rs.hostPrefixes
	case CollectionURLAllow:
		return rs.allowSubs
	case CollectionURLBlock:
		return rs.blockSubs
	default:
		return nil
	}
}

// Entries enumerates the rule set as a {collection, entry} table.
func (rs RuleSet) Entries() []RuleEntry {
	out := make([]RuleEntry, 0, rs.Len())
	for _, c := range AllCollections {
		for _, v := range rs.Collection(c) {
			out = append(out, RuleEntry{Collection: c, Value: v})
		}
	}
	return out
}

// Len returns the total number of rules.
func (rs RuleSet) Len() int {
	return len(rs.exactHosts) + len(rs.hostSuffixes) + len(rs.hostPrefixes) + len(rs.allowSubs) + len(rs.blockSubs)
}

// IsEmpty reports whether the rule set holds no rules at all. An empty
// rule set denies every request that reaches the allowlist check.
func (rs RuleSet) IsEmpty() bool { return rs.Len() == 0 }
