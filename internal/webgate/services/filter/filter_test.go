package filter

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-webgate/internal/webgate/common/clock"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/repos/hostindex"
	"github.com/haukened/rr-webgate/internal/webgate/repos/policy"
)

// recordingLogger captures entries so tests can assert on the audit trail.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	fields map[string]any
	msg    string
}

func (l *recordingLogger) add(level string, f map[string]any, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, f, msg})
	l.mu.Unlock()
}

func (l *recordingLogger) Info(f map[string]any, msg string)  { l.add("INFO", f, msg) }
func (l *recordingLogger) Error(f map[string]any, msg string) { l.add("ERROR", f, msg) }
func (l *recordingLogger) Debug(f map[string]any, msg string) { l.add("DEBUG", f, msg) }
func (l *recordingLogger) Warn(f map[string]any, msg string)  { l.add("WARN", f, msg) }
func (l *recordingLogger) Panic(f map[string]any, msg string) {}
func (l *recordingLogger) Fatal(f map[string]any, msg string) {}

func (l *recordingLogger) denials() []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]any
	for _, e := range l.entries {
		if e.msg == "request denied" {
			out = append(out, e.fields)
		}
	}
	return out
}

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(d domain.Denial) error {
	args := m.Called(d)
	return args.Error(0)
}

// mapCache is a minimal DecisionCache for exercising the cache path.
type mapCache struct {
	mu   sync.Mutex
	m    map[string]domain.Decision
	hits uint64
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]domain.Decision)} }

func (c *mapCache) Get(kind domain.RequestKind, url string) (domain.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.m[kind.String()+"|"+url]
	if ok {
		c.hits++
	}
	return d, ok
}

func (c *mapCache) Put(d domain.Decision) {
	c.mu.Lock()
	c.m[d.Phase.String()+"|"+d.URL] = d
	c.mu.Unlock()
}

func (c *mapCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: len(c.m), Hits: c.hits}
}

// exampleRules is the small rule set used in the property examples.
func exampleRules(t *testing.T) domain.RuleSet {
	t.Helper()
	rs, err := domain.NewRuleSet([]domain.RuleEntry{
		{Collection: domain.CollectionExactHost, Value: "maps.apple.com"},
		{Collection: domain.CollectionHostSuffix, Value: "-ssl.mzstatic.com"},
		{Collection: domain.CollectionHostPrefix, Value: "gspe"},
		{Collection: domain.CollectionURLAllow, Value: "/apple_maps_action"},
		{Collection: domain.CollectionURLBlock, Value: "/reportAnalytics"},
	})
	require.NoError(t, err)
	return rs
}

func newTestFilter(t *testing.T, rs domain.RuleSet) (*Filter, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	f := New(Options{
		Rules:     rs,
		HostIndex: hostindex.New(rs.ExactHosts(), 0.01),
		Logger:    logger,
		Clock:     &clock.MockClock{CurrentTime: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)},
	})
	return f, logger
}

func TestFilter_NonHTTPSAlwaysDenied(t *testing.T) {
	urls := []string{
		"http://maps.apple.com/",
		"ftp://maps.apple.com/file",
		"file:///etc/passwd",
		"data:text/html,<b>x</b>",
		"ws://maps.apple.com/socket",
		"maps.apple.com",
		"",
		"https://",
		"https://%zz/",
	}
	for _, rs := range []domain.RuleSet{{}, exampleRules(t), policy.Build()} {
		f, _ := newTestFilter(t, rs)
		for _, u := range urls {
			assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.DecideResource(u), "resource %q", u)
			assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.DecideNavigation(u), "navigation %q", u)
		}
	}
}

func TestFilter_BlankPageAllowed(t *testing.T) {
	for _, rs := range []domain.RuleSet{{}, exampleRules(t)} {
		f, logger := newTestFilter(t, rs)
		assert.Equal(t, domain.Allow(), f.DecideResource(domain.BlankPage))
		assert.Equal(t, domain.Allow(), f.DecideNavigation(domain.BlankPage))
		assert.Empty(t, logger.denials())
	}
}

func TestFilter_ExactHostAllowed(t *testing.T) {
	f, _ := newTestFilter(t, exampleRules(t))
	d := f.Evaluate(domain.NewResource("https://maps.apple.com/data/performanceAnalytics"))
	assert.Equal(t, domain.Allow(), d.Verdict)
	assert.Equal(t, "maps.apple.com", d.Host)
	assert.Equal(t, domain.CollectionExactHost, d.MatchedRule.Collection)
}

func TestFilter_EachAllowRouteCanBeVetoed(t *testing.T) {
	f, logger := newTestFilter(t, exampleRules(t))
	urls := []string{
		"https://maps.apple.com/mw/v1/reportAnalytics",
		"https://is3-ssl.mzstatic.com/reportAnalytics.png",
		"https://gspe21-ssl.ls.apple.com/reportAnalytics",
		"https://www.yelp.com/apple_maps_action/reportAnalytics",
	}
	for _, u := range urls {
		require.True(t, MatchesAllow(f.Rules(), u), "precondition: %q is allow-listed", u)
		assert.Equal(t, domain.Deny(domain.ReasonOnDenylist), f.DecideResource(u), "resource %q", u)
		assert.Equal(t, domain.Deny(domain.ReasonOnDenylist), f.DecideNavigation(u), "navigation %q", u)
	}
	den := logger.denials()
	require.Len(t, den, 2*len(urls))
	assert.Equal(t, "/reportAnalytics", den[0]["matched_rule"])
	assert.Equal(t, "on-denylist", den[0]["reason"])
	assert.Equal(t, urls[0], den[0]["subject"])
}

func TestFilter_UnlistedSecureURL(t *testing.T) {
	f, logger := newTestFilter(t, exampleRules(t))
	u := "https://www.tripadvisor.com/AppleMapsAction"

	assert.Equal(t, domain.Deny(domain.ReasonNotOnAllowlist), f.DecideResource(u))
	assert.Equal(t, domain.DenyWithPrompt(u), f.DecideNavigation(u))

	den := logger.denials()
	require.Len(t, den, 2)
	assert.Equal(t, map[string]any{"phase": "resource", "reason": "not-on-allowlist", "subject": "www.tripadvisor.com", "apex": "tripadvisor.com"}, den[0])
	assert.Equal(t, "navigation", den[1]["phase"])
}

func TestFilter_BlockListDoesNotOverrideNotListed(t *testing.T) {
	f, _ := newTestFilter(t, exampleRules(t))
	// both not allow-listed and containing a block substring: reported as not-on-allowlist
	u := "https://tracker.example/reportAnalytics"
	assert.Equal(t, domain.Deny(domain.ReasonNotOnAllowlist), f.DecideResource(u))
	assert.Equal(t, domain.DenyWithPrompt(u), f.DecideNavigation(u))
}

func TestFilter_JavaScriptSchemeDenied(t *testing.T) {
	rs, err := domain.NewRuleSet([]domain.RuleEntry{
		{Collection: domain.CollectionURLAllow, Value: "maps.apple.com"},
		{Collection: domain.CollectionURLAllow, Value: "javascript"},
	})
	require.NoError(t, err)
	f, logger := newTestFilter(t, rs)

	for _, u := range []string{"javascript:alert(1)", "JavaScript://maps.apple.com/%0Aalert(1)", "javascript:void(0)"} {
		assert.Equal(t, domain.Deny(domain.ReasonJavaScriptScheme), f.DecideNavigation(u), u)
		assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.DecideResource(u), u)
	}
	den := logger.denials()
	require.NotEmpty(t, den)
	assert.Equal(t, "javascript-scheme", den[0]["reason"])
}

func TestFilter_TelIntercepted(t *testing.T) {
	f, logger := newTestFilter(t, domain.RuleSet{})
	assert.Equal(t, domain.Intercept(domain.ActionDial, "tel:4155551234"), f.DecideNavigation("tel:4155551234"))
	assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.DecideResource("tel:4155551234"), "resources never dial")
	assert.Len(t, logger.denials(), 1)
}

func TestFilter_Idempotent(t *testing.T) {
	f, _ := newTestFilter(t, policy.Build())
	urls := []string{
		"https://maps.apple.com/",
		"https://maps.apple.com/data/analyticsStatus",
		"https://www.yelp.com/",
		"http://maps.apple.com/",
		"tel:4155551234",
		"javascript:alert(1)",
		domain.BlankPage,
	}
	for _, u := range urls {
		assert.Equal(t, f.DecideResource(u), f.DecideResource(u), u)
		assert.Equal(t, f.DecideNavigation(u), f.DecideNavigation(u), u)
	}
}

func TestFilter_BuiltinPolicyExamples(t *testing.T) {
	f, _ := newTestFilter(t, policy.Build())
	cases := []struct {
		url        string
		resource   domain.Verdict
		navigation domain.Verdict
	}{
		{"https://maps.apple.com/", domain.Allow(), domain.Allow()},
		// blocked only because this literal string is a block entry
		{"https://maps.apple.com/data/analyticsStatus", domain.Deny(domain.ReasonOnDenylist), domain.Deny(domain.ReasonOnDenylist)},
		// similar-looking but unlisted paths stay allowed
		{"https://maps.apple.com/data/analytics", domain.Allow(), domain.Allow()},
		{"https://maps.apple.com/data/status", domain.Allow(), domain.Allow()},
		{"https://maps.apple.com/data/performanceAnalytics", domain.Deny(domain.ReasonOnDenylist), domain.Deny(domain.ReasonOnDenylist)},
		{"https://cdn.apple-mapkit.com/mw/v1/reportAnalytics", domain.Deny(domain.ReasonOnDenylist), domain.Deny(domain.ReasonOnDenylist)},
		{"https://is1-ssl.mzstatic.com/image/thumb/a.jpg", domain.Allow(), domain.Allow()},
		{"https://s3-media0.fl.yelpcdn.com/bphoto/o.jpg", domain.Allow(), domain.Allow()},
		{"https://media-cdn.tripadvisor.com/media/photo-o/x.jpg", domain.Allow(), domain.Allow()},
		{"https://xp.apple.com/report/2/xp_amp_web_perf_log", domain.Deny(domain.ReasonNotOnAllowlist), domain.DenyWithPrompt("https://xp.apple.com/report/2/xp_amp_web_perf_log")},
		{"https://www.yelp.com/biz/cafe", domain.Deny(domain.ReasonNotOnAllowlist), domain.DenyWithPrompt("https://www.yelp.com/biz/cafe")},
		{"http://maps.apple.com/", domain.Deny(domain.ReasonNonHTTPS), domain.Deny(domain.ReasonNonHTTPS)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.resource, f.DecideResource(tc.url), "resource %s", tc.url)
		assert.Equal(t, tc.navigation, f.DecideNavigation(tc.url), "navigation %s", tc.url)
	}
}

func TestFilter_EmptyRuleSetFailsClosed(t *testing.T) {
	f, _ := newTestFilter(t, domain.RuleSet{})
	assert.Equal(t, domain.Deny(domain.ReasonNotOnAllowlist), f.DecideResource("https://maps.apple.com/"))
	assert.Equal(t, domain.DenyWithPrompt("https://maps.apple.com/"), f.DecideNavigation("https://maps.apple.com/"))
}

func TestFilter_HostCaseInsensitive(t *testing.T) {
	f, _ := newTestFilter(t, exampleRules(t))
	assert.Equal(t, domain.Allow(), f.DecideResource("https://MAPS.Apple.COM/"))
	assert.Equal(t, domain.Allow(), f.DecideResource("HTTPS://maps.apple.com./tiles"))
}

func TestFilter_EvaluateDispatchesOnKind(t *testing.T) {
	f, _ := newTestFilter(t, exampleRules(t))
	u := "https://unlisted.example/"
	nav := f.Evaluate(domain.NewNavigation(u))
	assert.Equal(t, domain.DenyWithPrompt(u), nav.Verdict)
	assert.Equal(t, "unlisted.example", nav.Host)
	assert.Equal(t, domain.Deny(domain.ReasonNotOnAllowlist), f.Evaluate(domain.NewResource(u)).Verdict)
	// unknown kinds get the resource tree
	assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.Evaluate(domain.Request{URL: "tel:1", Kind: domain.RequestKind(7)}).Verdict)
}

func TestFilter_AuditSink(t *testing.T) {
	rs := exampleRules(t)
	sink := &MockAuditSink{}
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	logger := &recordingLogger{}
	f := New(Options{Rules: rs, Audit: sink, Logger: logger, Clock: &clock.MockClock{CurrentTime: at}})

	want := domain.Denial{
		Phase:       "resource",
		Reason:      "on-denylist",
		Subject:     "https://maps.apple.com/reportAnalytics",
		MatchedRule: "/reportAnalytics",
		Apex:        "apple.com",
		At:          at,
	}
	sink.On("Record", want).Return(nil).Once()
	assert.Equal(t, domain.Deny(domain.ReasonOnDenylist), f.DecideResource("https://maps.apple.com/reportAnalytics"))

	// allowed requests never reach the sink
	assert.Equal(t, domain.Allow(), f.DecideResource("https://maps.apple.com/"))
	sink.AssertExpectations(t)

	// sink failures are logged and do not change the verdict
	sink.On("Record", mock.Anything).Return(errors.New("disk full")).Once()
	assert.Equal(t, domain.Deny(domain.ReasonNonHTTPS), f.DecideNavigation("http://maps.apple.com/"))
	sink.AssertExpectations(t)

	var warned bool
	for _, e := range logger.entries {
		if e.level == "WARN" && e.msg == "failed to record denial" {
			warned = true
			assert.Equal(t, "disk full", e.fields["error"])
		}
	}
	assert.True(t, warned)
}

func TestFilter_CachedDenialsStillAudited(t *testing.T) {
	cache := newMapCache()
	logger := &recordingLogger{}
	f := New(Options{Rules: exampleRules(t), Cache: cache, Logger: logger})

	u := "https://unlisted.example/"
	first := f.DecideResource(u)
	second := f.DecideResource(u)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), f.CacheStats().Hits)
	assert.Len(t, logger.denials(), 2)
}

func TestFilter_CacheStatsWithoutCache(t *testing.T) {
	f, _ := newTestFilter(t, exampleRules(t))
	assert.Equal(t, CacheStats{}, f.CacheStats())
}

func TestFilter_DefaultsDoNotPanic(t *testing.T) {
	f := New(Options{})
	assert.Equal(t, domain.Allow(), f.DecideResource(domain.BlankPage))
	assert.Equal(t, domain.Deny(domain.ReasonNotOnAllowlist), f.DecideResource("https://maps.apple.com/"))
}

func TestFilter_ConcurrentUse(t *testing.T) {
	f, _ := newTestFilter(t, policy.Build())
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				u := fmt.Sprintf("https://is%d-ssl.mzstatic.com/%d.jpg", id, i)
				if v := f.DecideResource(u); v != domain.Allow() {
					t.Errorf("DecideResource(%q) = %v", u, v)
					return
				}
				if v := f.DecideNavigation("https://maps.apple.com/data/analyticsStatus"); v != domain.Deny(domain.ReasonOnDenylist) {
					t.Errorf("DecideNavigation = %v", v)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestFilter_SameVerdictWithAndWithoutHostIndex(t *testing.T) {
	rs, err := domain.NewRuleSet([]domain.RuleEntry{
		{Collection: domain.CollectionExactHost, Value: "Maps.Apple.com"},
		{Collection: domain.CollectionExactHost, Value: "cdn.apple-mapkit.com."},
		{Collection: domain.CollectionHostSuffix, Value: "-SSL.mzstatic.com."},
		{Collection: domain.CollectionHostPrefix, Value: "GSPE"},
	})
	require.NoError(t, err)

	indexed, _ := newTestFilter(t, rs)
	scanned := New(Options{Rules: rs, Logger: &recordingLogger{}})

	tests := []struct {
		url  string
		want domain.Verdict
	}{
		{"https://maps.apple.com/", domain.Allow()},
		{"https://MAPS.apple.com./place", domain.Allow()},
		{"https://cdn.apple-mapkit.com/t", domain.Allow()},
		{"https://is1-ssl.mzstatic.com/a.jpg", domain.Allow()},
		{"https://gspe21-ssl.ls.apple.com/icon.png", domain.Allow()},
		{"https://evil.example/", domain.Deny(domain.ReasonNotOnAllowlist)},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, indexed.DecideResource(tt.url), "with index")
			assert.Equal(t, tt.want, scanned.DecideResource(tt.url), "without index")
			assert.Equal(t, tt.want.IsAllowed(), MatchesAllow(rs, tt.url), "package MatchesAllow")
		})
	}
}
