// Package audit holds sinks for denial records.
package audit

import (
	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/services/filter"
)

// NoopSink discards denial records. Denials are still logged by the filter.
type NoopSink struct{}

func (NoopSink) Record(domain.Denial) error { return nil }

var _ filter.AuditSink = NoopSink{}
