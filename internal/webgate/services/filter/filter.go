// Package filter implements the request admission engine: a pure function
// of (rule set, request) to verdict, with two entry points for the host's
// resource and navigation interception callbacks.
package filter

import (
	"github.com/haukened/rr-webgate/internal/webgate/common/clock"
	"github.com/haukened/rr-webgate/internal/webgate/common/log"
	"github.com/haukened/rr-webgate/internal/webgate/common/utils"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
)

// Filter is the Request Filter. The rule set is fixed at construction, so a
// Filter may be called from any number of interception callbacks at once.
type Filter struct {
	matcher *Matcher
	rules   domain.RuleSet
	cache   DecisionCache
	audit   AuditSink
	logger  log.Logger
	clock   clock.Clock
}

// Options configures a Filter. Only Rules is required; an empty RuleSet
// denies everything that reaches the allowlist check.
type Options struct {
	Rules     domain.RuleSet
	HostIndex HostIndex     // optional exact-host index; nil scans the collection
	Cache     DecisionCache // optional
	Audit     AuditSink     // optional
	Logger    log.Logger    // defaults to the global logger
	Clock     clock.Clock   // defaults to the real clock
}

func New(opts Options) *Filter {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Filter{
		matcher: NewMatcher(opts.Rules, opts.HostIndex),
		rules:   opts.Rules,
		cache:   opts.Cache,
		audit:   opts.Audit,
		logger:  logger,
		clock:   clk,
	}
}

var _ RequestInterceptor = (*Filter)(nil)

// Rules returns the rule set the filter was built with.
func (f *Filter) Rules() domain.RuleSet { return f.rules }

// DecideResource decides a sub-resource load:
//
//  1. about:blank is allowed
//  2. non-https is denied
//  3. not on the allowlist is denied
//  4. on the denylist is denied
//  5. otherwise allowed
func (f *Filter) DecideResource(url string) domain.Verdict {
	return f.Evaluate(domain.NewResource(url)).Verdict
}

// DecideNavigation decides a main-frame navigation. It follows the resource
// tree with three differences: tel: URLs are intercepted for the dialer,
// javascript: URLs are always denied, and a secure URL missing from the
// allowlist yields DenyWithPrompt instead of a bare Deny.
func (f *Filter) DecideNavigation(url string) domain.Verdict {
	return f.Evaluate(domain.NewNavigation(url)).Verdict
}

// Evaluate returns the full decision for req. Every denial is logged and
// handed to the audit sink, including denials served from the cache.
func (f *Filter) Evaluate(req domain.Request) domain.Decision {
	if f.cache != nil {
		if d, ok := f.cache.Get(req.Kind, req.URL); ok {
			f.observe(d)
			return d
		}
	}
	d := f.evaluate(req)
	if f.cache != nil {
		f.cache.Put(d)
	}
	f.observe(d)
	return d
}

// CacheStats returns decision cache metrics, zero when caching is off.
func (f *Filter) CacheStats() CacheStats {
	if f.cache == nil {
		return CacheStats{}
	}
	return f.cache.Stats()
}

func (f *Filter) evaluate(req domain.Request) domain.Decision {
	raw := req.URL
	d := domain.Decision{Phase: req.Kind, URL: raw}

	if raw == domain.BlankPage {
		d.Verdict = domain.Allow()
		return d
	}

	navigation := req.Kind == domain.RequestNavigation
	if navigation {
		if IsTelURL(raw) {
			d.Verdict = domain.Intercept(domain.ActionDial, raw)
			return d
		}
		if IsJavaScriptURL(raw) {
			d.Verdict = domain.Deny(domain.ReasonJavaScriptScheme)
			return d
		}
	}

	host, secure := secureHost(raw)
	if !secure {
		d.Verdict = domain.Deny(domain.ReasonNonHTTPS)
		return d
	}
	d.Host = host

	allowRule, ok := f.matcher.MatchesAllow(host, raw)
	if !ok {
		if navigation {
			d.Verdict = domain.DenyWithPrompt(raw)
		} else {
			d.Verdict = domain.Deny(domain.ReasonNotOnAllowlist)
		}
		return d
	}

	if blockRule, hit := f.matcher.MatchesBlock(raw); hit {
		d.Verdict = domain.Deny(domain.ReasonOnDenylist)
		d.MatchedRule = blockRule
		return d
	}

	d.Verdict = domain.Allow()
	d.MatchedRule = allowRule
	return d
}

// observe emits the audit trail for denying decisions.
func (f *Filter) observe(d domain.Decision) {
	if !d.Verdict.IsDenied() {
		if d.Verdict.Kind == domain.VerdictIntercept {
			f.logger.Debug(map[string]any{"phase": d.Phase.String(), "action": d.Verdict.Action.String()}, "request intercepted")
		}
		return
	}
	host := d.Host
	if host == "" {
		host = hostOf(d.URL)
	}
	den, _ := d.Denial(f.clock.Now(), utils.GetApexDomain(host))
	f.logger.Info(den.Fields(), "request denied")
	if f.audit == nil {
		return
	}
	if err := f.audit.Record(den); err != nil {
		f.logger.Warn(map[string]any{"error": err.Error(), "subject": den.Subject}, "failed to record denial")
	}
}
