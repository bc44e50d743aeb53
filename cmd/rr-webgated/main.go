package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/haukened/rr-webgate/internal/webgate/common/clock"
	"github.com/haukened/rr-webgate/internal/webgate/common/log"
	"github.com/haukened/rr-webgate/internal/webgate/config"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/repos/audit"
	"github.com/haukened/rr-webgate/internal/webgate/repos/audit/bolt"
	"github.com/haukened/rr-webgate/internal/webgate/repos/decisioncache"
	"github.com/haukened/rr-webgate/internal/webgate/repos/hostindex"
	"github.com/haukened/rr-webgate/internal/webgate/repos/policy"
	"github.com/haukened/rr-webgate/internal/webgate/services/filter"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-webgated"
)

// Application holds the wired admission engine and its stores.
type Application struct {
	config *config.AppConfig
	filter *filter.Filter
	store  *bolt.Store // nil when no audit db is configured
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	runErr := newCLI(app).Run(os.Args)
	stats := app.filter.CacheStats()
	log.Debug(map[string]any{
		"cache_hits":      stats.Hits,
		"cache_misses":    stats.Misses,
		"cache_evictions": stats.Evictions,
	}, "Decision cache totals")
	if err := app.Close(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Error closing audit store")
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	rules, err := buildRuleSet(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule set: %w", err)
	}

	var cache filter.DecisionCache
	if cfg.Cache.Size > 0 {
		c, err := decisioncache.New(cfg.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to create decision cache: %w", err)
		}
		cache = c
	} else {
		log.Info(map[string]any{"disabled": true}, "Decision caching disabled")
	}

	app := &Application{config: cfg}

	var sink filter.AuditSink = audit.NoopSink{}
	if cfg.Audit.DB != "" {
		app.store, err = bolt.New(cfg.Audit.DB, bolt.Options{Logger: log.WithComponent(logger, "audit")})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		sink = app.store
	}

	index := hostindex.New(rules.ExactHosts(), cfg.Index.FPRate)
	app.filter = filter.New(filter.Options{
		Rules:     rules,
		HostIndex: index,
		Cache:     cache,
		Audit:     sink,
		Logger:    log.WithComponent(logger, "filter"),
		Clock:     clock.RealClock{},
	})

	log.Info(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"rules":       rules.Len(),
		"exact_hosts": index.Len(),
		"cache_size":  cfg.Cache.Size,
		"audit_db":    cfg.Audit.DB,
	}, "Admission engine ready")

	return app, nil
}

// buildRuleSet returns the compiled-in policy, extended or replaced by the
// configured policy file.
func buildRuleSet(cfg *config.AppConfig) (domain.RuleSet, error) {
	if cfg.Policy.File == "" {
		return policy.Build(), nil
	}
	entries, err := policy.LoadFile(cfg.Policy.File)
	if err != nil {
		return domain.RuleSet{}, err
	}
	rules, err := policy.Compose(entries, cfg.Policy.Replace)
	if err != nil {
		return domain.RuleSet{}, err
	}
	log.Info(map[string]any{
		"file":    cfg.Policy.File,
		"entries": len(entries),
		"replace": cfg.Policy.Replace,
	}, "Policy file loaded")
	if rules.IsEmpty() {
		log.Warn(map[string]any{"file": cfg.Policy.File}, "Rule set is empty, every non-blank request will be denied")
	}
	return rules, nil
}

// Close releases the audit store, if any.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// newCLI builds the command tree around a wired application.
func newCLI(a *Application) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = version
	app.Usage = "URL admission control for an embedded web shell"
	app.Commands = []*cli.Command{
		{
			Name:    "check",
			Aliases: []string{"c"},
			Usage:   "decide URLs given as arguments or one per line on stdin",
			Action:  a.Check,
			Flags:   CheckFlags(),
		},
		{
			Name:    "navigate",
			Aliases: []string{"n"},
			Usage:   "run main-frame navigations through the host dispatcher",
			Action:  a.Navigate,
		},
		{
			Name:   "rules",
			Usage:  "print the active rule table",
			Action: a.Rules,
			Flags:  RulesFlags(),
		},
		{
			Name:   "audit",
			Usage:  "show recorded denials",
			Action: a.Audit,
			Flags:  AuditFlags(),
		},
		{
			Name:   "geolocation",
			Usage:  "report whether page origins may be granted geolocation",
			Action: a.Geolocation,
		},
		{
			Name:   "launch",
			Usage:  "resolve the first URL for a launch link",
			Action: a.Launch,
		},
	}
	return app
}
