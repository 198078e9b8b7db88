package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/ontosearch/pkg/cache"
	"github.com/urfave/cli/v3"
)

// CacheCommand creates the cache command
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the response cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withEngine(ctx, c, func(e *engine) error {
						return cacheStats(ctx, e)
					})
				},
			},
			{
				Name:  "purge",
				Usage: "Remove expired entries",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Remove every entry, expired or not",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withEngine(ctx, c, func(e *engine) error {
						return purgeCache(ctx, e, c.Bool("all"))
					})
				},
			},
		},
	}
}

func cacheStats(ctx context.Context, e *engine) error {
	reporter, ok := e.store.(cache.StatsReporter)
	if !ok {
		fmt.Printf("Cache type %q keeps no statistics\n", e.cfg.Cache.Type)
		return nil
	}

	stats, err := reporter.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	path := ""
	if e.cfg.Cache.Type == "sqlite" {
		path = e.cfg.Cache.Path
	}
	fmt.Print(formatCacheStats(e.cfg.Cache.Type, path, stats))
	return nil
}

func purgeCache(ctx context.Context, e *engine, all bool) error {
	if all {
		clearer, ok := e.store.(cache.Clearer)
		if !ok {
			return fmt.Errorf("cache type %q cannot be cleared", e.cfg.Cache.Type)
		}
		if err := clearer.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	}

	purger, ok := e.store.(cache.Purger)
	if !ok {
		return fmt.Errorf("cache type %q cannot be purged", e.cfg.Cache.Type)
	}
	removed, err := purger.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	fmt.Printf("Removed %s expired entries\n", formatNumber(removed))
	return nil
}
