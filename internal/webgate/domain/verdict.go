package domain

import "fmt"

// VerdictKind is the category of a filter verdict.
type VerdictKind uint8

const (
	// VerdictAllow lets the request proceed.
	VerdictAllow VerdictKind = iota
	// VerdictDeny blocks the request outright.
	VerdictDeny
	// VerdictDenyWithPrompt blocks a navigation but lets the host offer a
	// manual override (e.g. opening the URL in an external browser).
	VerdictDenyWithPrompt
	// VerdictIntercept hands a special-scheme URL to a platform action.
	VerdictIntercept
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictAllow:
		return "allow"
	case VerdictDeny:
		return "deny"
	case VerdictDenyWithPrompt:
		return "deny_with_prompt"
	case VerdictIntercept:
		return "intercept"
	default:
		return fmt.Sprintf("VerdictKind(%d)", k)
	}
}

// Action is the platform action requested by an Intercept verdict.
type Action uint8

const (
	ActionNone Action = iota
	// ActionDial hands a tel: URL to the platform dialer.
	ActionDial
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionDial:
		return "dial"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// DenyReason explains why a request was refused.
type DenyReason uint8

const (
	ReasonNone DenyReason = iota
	ReasonNonHTTPS
	ReasonNotOnAllowlist
	ReasonOnDenylist
	ReasonJavaScriptScheme
)

// String returns the stable reason label written to audit records.
func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonNonHTTPS:
		return "non-https"
	case ReasonNotOnAllowlist:
		return "not-on-allowlist"
	case ReasonOnDenylist:
		return "on-denylist"
	case ReasonJavaScriptScheme:
		return "javascript-scheme"
	default:
		return fmt.Sprintf("DenyReason(%d)", r)
	}
}

// ParseDenyReason is the inverse of DenyReason.String for non-empty labels.
func ParseDenyReason(s string) (DenyReason, error) {
	for _, r := range []DenyReason{ReasonNonHTTPS, ReasonNotOnAllowlist, ReasonOnDenylist, ReasonJavaScriptScheme} {
		if r.String() == s {
			return r, nil
		}
	}
	return ReasonNone, fmt.Errorf("unsupported DenyReason: %q", s)
}

// Verdict is the filter's decision for one request. Pure value type.
//
// URL is set for DenyWithPrompt (the destination the user may confirm) and
// for Intercept (the URL handed to the platform action).
type Verdict struct {
	Kind   VerdictKind
	Reason DenyReason
	Action Action
	URL    string
}

// Allow returns an allow verdict.
func Allow() Verdict { return Verdict{Kind: VerdictAllow} }

// Deny returns a plain deny verdict with the given reason.
func Deny(reason DenyReason) Verdict { return Verdict{Kind: VerdictDeny, Reason: reason} }

// DenyWithPrompt returns the navigation-only verdict for a secure destination
// that is not on the allowlist.
func DenyWithPrompt(url string) Verdict {
	return Verdict{Kind: VerdictDenyWithPrompt, Reason: ReasonNotOnAllowlist, URL: url}
}

// Intercept returns a verdict asking the host to perform action on url.
func Intercept(action Action, url string) Verdict {
	return Verdict{Kind: VerdictIntercept, Action: action, URL: url}
}

// IsAllowed reports whether the host may proceed with the request.
func (v Verdict) IsAllowed() bool { return v.Kind == VerdictAllow }

// IsDenied reports whether the verdict blocks the request, with or without a prompt.
func (v Verdict) IsDenied() bool {
	return v.Kind == VerdictDeny || v.Kind == VerdictDenyWithPrompt
}

func (v Verdict) String() string {
	switch v.Kind {
	case VerdictDeny:
		return fmt.Sprintf("deny(%s)", v.Reason)
	case VerdictDenyWithPrompt:
		return fmt.Sprintf("deny_with_prompt(%s)", v.URL)
	case VerdictIntercept:
		return fmt.Sprintf("intercept(%s)", v.Action)
	default:
		return v.Kind.String()
	}
}
