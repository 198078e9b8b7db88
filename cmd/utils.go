package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/ontosearch/pkg/cache"
	"github.com/rubiojr/ontosearch/pkg/config"
	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/gateway"
	"github.com/rubiojr/ontosearch/pkg/log"
	"github.com/rubiojr/ontosearch/pkg/metrics"
	"github.com/rubiojr/ontosearch/pkg/search"
	"github.com/rubiojr/ontosearch/pkg/transport"
)

// engine bundles everything a command needs to run searches.
type engine struct {
	cfg      *config.Config
	store    cache.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	gateway  *gateway.Gateway
	service  *search.Service
	rules    core.Rules
}

// loadConfig reads the configuration selected by the global flags and
// applies its logging settings.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Configure(c.Bool("debug"), cfg.DebugServices)
	return cfg, nil
}

// newEngine wires the cache, the backend gateway and the search service
// from cfg.
func newEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	store, err := cache.Open(ctx, cfg.Cache.Type, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		_ = cache.Close(store)
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	gw := gateway.New(gatewayConfig(cfg), transport.NewClient(), store, m)

	e := &engine{
		cfg:      cfg,
		store:    store,
		registry: registry,
		metrics:  m,
		gateway:  gw,
		service:  search.NewService(gw, m),
	}

	if cfg.RulesFile != "" {
		rules, err := core.LoadRules(cfg.RulesFile)
		if err != nil {
			_ = cache.Close(store)
			return nil, err
		}
		e.rules = rules
	}

	return e, nil
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	return gateway.Config{
		Origin:      cfg.Backend.Origin,
		URL:         cfg.Backend.URL,
		DefaultSize: cfg.Backend.DefaultSize,
		Timeout:     cfg.Backend.Timeout.Duration,
		SuccessTTL:  durationOr(cfg.Cache.SuccessTTL, config.DefaultSuccessTTL),
		EmptyTTL:    durationOr(cfg.Cache.EmptyTTL, config.DefaultEmptyTTL),
		Headers:     cfg.Backend.Headers,
	}
}

func durationOr(d *config.Duration, fallback time.Duration) time.Duration {
	if d == nil {
		return fallback
	}
	return d.Duration
}

func (e *engine) Close() error {
	return cache.Close(e.store)
}

// withEngine loads the configuration, builds an engine and runs fn with it.
func withEngine(ctx context.Context, c *cli.Command, fn func(*engine) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	e, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			fmt.Printf("Warning: failed to close cache: %v\n", err)
		}
	}()

	return fn(e)
}

// ruleFor resolves the rule named on the command line. An explicit rules
// file overrides the configured one.
func (e *engine) ruleFor(rulesFile, field, ruleName string) (core.ValidationRule, error) {
	rules := e.rules
	if rulesFile != "" {
		loaded, err := core.LoadRules(rulesFile)
		if err != nil {
			return core.ValidationRule{}, err
		}
		rules = loaded
	}
	if len(rules) == 0 {
		return core.ValidationRule{}, fmt.Errorf("no validation rules loaded: set rules_file in the config or pass --rules")
	}
	rule, ok := rules.Find(field, ruleName)
	if !ok {
		if ruleName != "" {
			return core.ValidationRule{}, fmt.Errorf("no rule %q for field %q", ruleName, field)
		}
		return core.ValidationRule{}, fmt.Errorf("no rule for field %q (known fields: %v)", field, rules.Fields())
	}
	return rule, nil
}
