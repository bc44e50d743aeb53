package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/rr-webgate/internal/webgate/common/utils"
)

// RuleCollection names one of the five rule collections of a RuleSet.
//
// exact_host  - hostname must equal the entry
// host_suffix - hostname must end with the entry
// host_prefix - hostname must start with the entry
// url_allow   - full URL must contain the entry
// url_block   - full URL containing the entry is vetoed (after an allow)
type RuleCollection uint8

const (
	CollectionExactHost RuleCollection = iota
	CollectionHostSuffix
	CollectionHostPrefix
	CollectionURLAllow
	CollectionURLBlock
)

// AllCollections lists the collections in table order.
var AllCollections = []RuleCollection{
	CollectionExactHost,
	CollectionHostSuffix,
	CollectionHostPrefix,
	CollectionURLAllow,
	CollectionURLBlock,
}

// String returns a stable string representation of the collection.
func (c RuleCollection) String() string {
	switch c {
	case CollectionExactHost:
		return "exact_host"
	case CollectionHostSuffix:
		return "host_suffix"
	case CollectionHostPrefix:
		return "host_prefix"
	case CollectionURLAllow:
		return "url_allow"
	case CollectionURLBlock:
		return "url_block"
	default:
		return fmt.Sprintf("RuleCollection(%d)", c)
	}
}

// ParseRuleCollection converts a string into a RuleCollection (case-insensitive).
func ParseRuleCollection(s string) (RuleCollection, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCollections {
		if c.String() == want {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unsupported RuleCollection: %q", s)
}

// ErrEmptyRuleValue is returned for rules without a value. An empty suffix,
// prefix or substring would match every request.
var ErrEmptyRuleValue = errors.New("rule value must not be empty")

// RuleEntry is one {collection, entry} pair of the policy table.
type RuleEntry struct {
	Collection RuleCollection
	Value      string
}

// NewRuleEntry constructs a RuleEntry in canonical form and validates it.
func NewRuleEntry(c RuleCollection, value string) (RuleEntry, error) {
	e := RuleEntry{Collection: c, Value: value}.Canonical()
	if err := e.Validate(); err != nil {
		return RuleEntry{}, err
	}
	return e, nil
}

// Canonical returns the entry in the form hosts are compared in.
// Exact hosts and suffixes get the canonical host form; prefixes are only
// trimmed and lowercased, since a trailing dot there is part of the label
// boundary. URL substrings are trimmed and otherwise kept verbatim.
func (e RuleEntry) Canonical() RuleEntry {
	switch e.Collection {
	case CollectionExactHost, CollectionHostSuffix:
		e.Value = utils.CanonicalHost(e.Value)
	case CollectionHostPrefix:
		e.Value = strings.ToLower(strings.TrimSpace(e.Value))
	default:
		e.Value = strings.TrimSpace(e.Value)
	}
	return e
}

// Validate checks the entry for a supported collection and a non-empty value.
func (e RuleEntry) Validate() error {
	if e.Value == "" {
		return fmt.Errorf("%s: %w", e.Collection, ErrEmptyRuleValue)
	}
	switch e.Collection {
	case CollectionExactHost, CollectionHostSuffix, CollectionHostPrefix, CollectionURLAllow, CollectionURLBlock:
		return nil
	default:
		return fmt.Errorf("unsupported RuleCollection: %d", e.Collection)
	}
}

func (e RuleEntry) String() string {
	if e.Value == "" {
		return ""
	}
	return e.Collection.String() + ":" + e.Value
}
