package filter

import "github.com/haukened/rr-webgate/internal/webgate/domain"

// RequestInterceptor is the capability the host's interception callbacks
// call into: one method per call site.
type RequestInterceptor interface {
	// DecideResource decides whether a sub-resource may load.
	DecideResource(url string) domain.Verdict
	// DecideNavigation decides whether the main frame may navigate.
	DecideNavigation(url string) domain.Verdict
}

// HostIndex answers exact-host membership. host is in canonical form.
type HostIndex interface {
	Contains(host string) bool
}

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// DecisionCache memoizes decisions by phase and URL. Implementations must be
// safe for concurrent use.
type DecisionCache interface {
	Get(kind domain.RequestKind, url string) (domain.Decision, bool)
	Put(d domain.Decision)
	Stats() CacheStats
}

// AuditSink receives one record per denied request. Record is called on the
// decision path: implementations must not block on I/O and must be safe for
// concurrent use.
type AuditSink interface {
	Record(d domain.Denial) error
}
