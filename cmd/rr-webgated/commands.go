package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/gateways/host"
)

// errNoAuditStore is returned by the audit command when no db is configured.
var errNoAuditStore = errors.New("audit store not configured (set WEBGATE_AUDIT_DB)")

func CheckFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "kind",
			Usage: "request kind: navigation or resource",
			Value: domain.RequestNavigation.String(),
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "exit non-zero if any URL is not allowed",
		},
	}
}

func AuditFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of records, newest first",
			Value: 20,
		},
		&cli.StringFlag{
			Name:  "reason",
			Usage: "only show denials with this reason (non-https, not-on-allowlist, on-denylist, javascript-scheme)",
		},
	}
}

// inputURLs returns the command arguments, or stdin lines when there are none.
func inputURLs(ctx *cli.Context) ([]string, error) {
	if ctx.Args().Present() {
		return ctx.Args().Slice(), nil
	}
	var urls []string
	sc := bufio.NewScanner(ctx.App.Reader)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, sc.Err()
}

// Check prints one decision per URL.
func (a *Application) Check(ctx *cli.Context) error {
	kind, err := domain.ParseRequestKind(ctx.String("kind"))
	if err != nil {
		return err
	}
	urls, err := inputURLs(ctx)
	if err != nil {
		return fmt.Errorf("read urls: %w", err)
	}

	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	refused := 0
	for _, u := range urls {
		d := a.filter.Evaluate(domain.Request{URL: u, Kind: kind})
		rule := "-"
		if d.MatchedRule.Value != "" {
			rule = d.MatchedRule.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Verdict, rule, u)
		if !d.Verdict.IsAllowed() {
			refused++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if ctx.Bool("strict") && refused > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d not allowed", refused, len(urls)), 2)
	}
	return nil
}

// Navigate dispatches each URL as a main-frame navigation, with the terminal
// standing in for the dialer, the consent prompt and the external browser.
// Without arguments URLs are read from stdin through the same reader that
// answers prompts, so an answer line follows the URL it belongs to.
func (a *Application) Navigate(ctx *cli.Context) error {
	term := newConsole(ctx.App.Reader, ctx.App.Writer)
	d := host.NewDispatcher(host.Options{
		Interceptor: a.filter,
		Dialer:      term,
		Prompter:    term,
		Opener:      term,
	})

	args := ctx.Args().Slice()
	next := func() (string, error) {
		if ctx.Args().Present() {
			if len(args) == 0 {
				return "", io.EOF
			}
			u := args[0]
			args = args[1:]
			return u, nil
		}
		return term.nextLine()
	}

	for {
		u, err := next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read urls: %w", err)
		}
		proceed, err := d.HandleNavigation(ctx.Context, u)
		if err != nil {
			return fmt.Errorf("navigate %s: %w", u, err)
		}
		state := "cancel"
		if proceed {
			state = "proceed"
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s\n", state, u)
	}
}

func RulesFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "collection",
			Usage: "only print one collection (exact_host, host_suffix, host_prefix, url_allow, url_block)",
		},
	}
}

// Rules prints the active rule table.
func (a *Application) Rules(ctx *cli.Context) error {
	entries := a.filter.Rules().Entries()
	if name := ctx.String("collection"); name != "" {
		c, err := domain.ParseRuleCollection(name)
		if err != nil {
			return err
		}
		entries = slices.DeleteFunc(entries, func(e domain.RuleEntry) bool { return e.Collection != c })
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Collection, e.Value)
	}
	return tw.Flush()
}

// Audit prints recent denials and per-reason totals.
func (a *Application) Audit(ctx *cli.Context) error {
	if a.store == nil {
		return errNoAuditStore
	}
	want := domain.ReasonNone
	if r := ctx.String("reason"); r != "" {
		parsed, err := domain.ParseDenyReason(r)
		if err != nil {
			return err
		}
		want = parsed
	}
	limit := ctx.Int("limit")
	fetch := limit
	if want != domain.ReasonNone {
		fetch = 0
	}
	denials, err := a.store.List(fetch)
	if err != nil {
		return err
	}
	shown := 0
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	for _, d := range denials {
		if limit > 0 && shown >= limit {
			break
		}
		if want != domain.ReasonNone && d.Reason != want.String() {
			continue
		}
		shown++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.At.Format("2006-01-02T15:04:05Z07:00"), d.Phase, d.Reason, d.Subject)
	}
	stats := a.store.Stats()
	fmt.Fprintf(tw, "total\t%d\n", stats.Total)
	if stats.Dropped > 0 {
		fmt.Fprintf(tw, "dropped\t%d\n", stats.Dropped)
	}
	for _, r := range []domain.DenyReason{
		domain.ReasonNonHTTPS,
		domain.ReasonNotOnAllowlist,
		domain.ReasonOnDenylist,
		domain.ReasonJavaScriptScheme,
	} {
		if n := stats.ByReason[r.String()]; n > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", r, n)
		}
	}
	return tw.Flush()
}

// Launch resolves the first URL for an optional launch link and reports
// whether the shell may navigate to it.
func (a *Application) Launch(ctx *cli.Context) error {
	target := host.ResolveLaunchURL(ctx.Args().First(), a.config.Homepage)
	v := a.filter.DecideNavigation(target)
	fmt.Fprintf(ctx.App.Writer, "%s %s\n", v, target)
	return nil
}

// Geolocation prints grant or refuse for each page origin.
func (a *Application) Geolocation(ctx *cli.Context) error {
	origins, err := inputURLs(ctx)
	if err != nil {
		return fmt.Errorf("read origins: %w", err)
	}
	for _, o := range origins {
		state := "refuse"
		if host.AllowGeolocation(o) {
			state = "grant"
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s\n", state, o)
	}
	return nil
}
