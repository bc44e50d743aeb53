package domain

import "testing"

func TestVerdictConstructors(t *testing.T) {
	if v := Allow(); !v.IsAllowed() || v.IsDenied() || v.Reason != ReasonNone {
		t.Errorf("Allow() = %+v", v)
	}
	if v := Deny(ReasonOnDenylist); v.IsAllowed() || !v.IsDenied() || v.Reason != ReasonOnDenylist {
		t.Errorf("Deny() = %+v", v)
	}
	v := DenyWithPrompt("https://www.yelp.com/biz/x")
	if !v.IsDenied() || v.Kind != VerdictDenyWithPrompt || v.URL != "https://www.yelp.com/biz/x" || v.Reason != ReasonNotOnAllowlist {
		t.Errorf("DenyWithPrompt() = %+v", v)
	}
	i := Intercept(ActionDial, "tel:4155551234")
	if i.IsAllowed() || i.IsDenied() || i.Action != ActionDial || i.URL != "tel:4155551234" {
		t.Errorf("Intercept() = %+v", i)
	}
}

func TestVerdict_String(t *testing.T) {
	cases := []struct {
		v    Verdict
		want string
	}{
		{Allow(), "allow"},
		{Deny(ReasonNonHTTPS), "deny(non-https)"},
		{DenyWithPrompt("https://a.example/"), "deny_with_prompt(https://a.example/)"},
		{Intercept(ActionDial, "tel:1"), "intercept(dial)"},
		{Verdict{Kind: VerdictKind(7)}, "VerdictKind(7)"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("%+v.String() = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestDenyReason_RoundTrip(t *testing.T) {
	for _, r := range []DenyReason{ReasonNonHTTPS, ReasonNotOnAllowlist, ReasonOnDenylist, ReasonJavaScriptScheme} {
		got, err := ParseDenyReason(r.String())
		if err != nil {
			t.Fatalf("ParseDenyReason(%q) unexpected error: %v", r, err)
		}
		if got != r {
			t.Errorf("ParseDenyReason(%q) = %v", r.String(), got)
		}
	}
	if _, err := ParseDenyReason("because"); err == nil {
		t.Error("expected error for unknown reason")
	}
	if got := DenyReason(42).String(); got != "DenyReason(42)" {
		t.Errorf("DenyReason(42).String() = %q", got)
	}
}

func TestAction_String(t *testing.T) {
	if ActionNone.String() != "none" || ActionDial.String() != "dial" {
		t.Errorf("unexpected action labels")
	}
	if got := Action(5).String(); got != "Action(5)" {
		t.Errorf("Action(5).String() = %q", got)
	}
}
