package domain

import (
	"fmt"
	"strings"
)

// BlankPage is the sentinel URL the host uses for its own blank-page
// transitions. Both entry points allow it before any other rule runs.
const BlankPage = "about:blank"

// RequestKind distinguishes a main-frame navigation from a sub-resource fetch.
// It doubles as the audit "phase" of a decision.
type RequestKind uint8

const (
	// RequestResource is a sub-resource load such as a script, image or XHR.
	RequestResource RequestKind = iota
	// RequestNavigation is a main-frame navigation.
	RequestNavigation
)

// String returns the phase name used in logs and audit records.
func (k RequestKind) String() string {
	switch k {
	case RequestResource:
		return "resource"
	case RequestNavigation:
		return "navigation"
	default:
		return fmt.Sprintf("RequestKind(%d)", k)
	}
}

// ParseRequestKind converts a string into a RequestKind.
// Accepts: "resource", "navigation" (case-insensitive).
func ParseRequestKind(s string) (RequestKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resource":
		return RequestResource, nil
	case "navigation":
		return RequestNavigation, nil
	default:
		return 0, fmt.Errorf("unsupported RequestKind: %q", s)
	}
}

// Request is one candidate URL handed over by the host's interception hook.
// The URL is kept exactly as supplied; substring rules match against it verbatim.
type Request struct {
	URL  string
	Kind RequestKind
}

// NewNavigation builds a navigation request.
func NewNavigation(url string) Request { return Request{URL: url, Kind: RequestNavigation} }

// NewResource builds a sub-resource request.
func NewResource(url string) Request { return Request{URL: url, Kind: RequestResource} }
