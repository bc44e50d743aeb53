// Package hostindex provides the exact-host lookup used by the matcher:
// a Bloom filter answers "definitely not listed" without touching the set,
// and the set confirms the maybe-positives.
package hostindex

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-webgate/internal/webgate/common/utils"
)

// DefaultFPRate is the target false-positive rate of the prefilter.
const DefaultFPRate = 0.01

// Index is an immutable exact-host index. Safe for concurrent reads.
type Index struct {
	bf    *bitsbloom.BloomFilter
	hosts map[string]struct{}
}

// New builds an index over hosts sized for the given false-positive rate.
// Invalid rates fall back to DefaultFPRate.
func New(hosts []string, fpRate float64) *Index {
	if !(fpRate > 0 && fpRate < 1) {
		fpRate = DefaultFPRate
	}
	n := uint(len(hosts))
	if n == 0 {
		n = 1
	}
	idx := &Index{
		bf:    bitsbloom.NewWithEstimates(n, fpRate),
		hosts: make(map[string]struct{}, len(hosts)),
	}
	for _, h := range hosts {
		h = utils.CanonicalHost(h)
		if h == "" {
			continue
		}
		idx.bf.AddString(h)
		idx.hosts[h] = struct{}{}
	}
	return idx
}

// Contains reports whether host is exactly one of the indexed hosts.
// host is expected in canonical form.
func (i *Index) Contains(host string) bool {
	if !i.bf.TestString(host) {
		return false
	}
	_, ok := i.hosts[host]
	return ok
}

// Len returns the number of distinct indexed hosts.
func (i *Index) Len() int { return len(i.hosts) }
