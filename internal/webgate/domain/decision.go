package domain

import "time"

// Decision is a Verdict together with the evidence that produced it.
// Pure value type, no external dependencies.
type Decision struct {
	Phase       RequestKind
	URL         string // URL as supplied by the host
	Host        string // canonical hostname, empty when the URL did not parse
	Verdict     Verdict
	MatchedRule RuleEntry // allow rule for allows, block rule for on-denylist denials
}

// Denial returns the audit record for a denying decision, stamped with at.
// ok is false when the decision does not deny.
//
// The subject is the host for not-on-allowlist denials and the full URL for
// everything else, so the audit shows what the failing check looked at.
func (d Decision) Denial(at time.Time, apex string) (Denial, bool) {
	if !d.Verdict.IsDenied() {
		return Denial{}, false
	}
	subject := d.URL
	if d.Verdict.Reason == ReasonNotOnAllowlist && d.Host != "" {
		subject = d.Host
	}
	den := Denial{
		Phase:   d.Phase.String(),
		Reason:  d.Verdict.Reason.String(),
		Subject: subject,
		Apex:    apex,
		At:      at.UTC(),
	}
	if d.Verdict.Reason == ReasonOnDenylist {
		den.MatchedRule = d.MatchedRule.Value
	}
	return den, true
}

// Denial is the structured audit record emitted for every refused request.
// Field tags are the on-disk JSON encoding used by the audit store.
type Denial struct {
	Phase       string    `json:"phase"`
	Reason      string    `json:"reason"`
	Subject     string    `json:"subject"`
	MatchedRule string    `json:"matched_rule,omitempty"`
	Apex        string    `json:"apex,omitempty"`
	At          time.Time `json:"at"`
}

// Fields returns the denial as log fields.
func (d Denial) Fields() map[string]any {
	f := map[string]any{
		"phase":   d.Phase,
		"reason":  d.Reason,
		"subject": d.Subject,
	}
	if d.MatchedRule != "" {
		f["matched_rule"] = d.MatchedRule
	}
	if d.Apex != "" {
		f["apex"] = d.Apex
	}
	return f
}
