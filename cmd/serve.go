package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/ontosearch/pkg/api"
	"github.com/rubiojr/ontosearch/pkg/cache"
	"github.com/rubiojr/ontosearch/pkg/config"
	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/log"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP search API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides server.listen)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEngine(ctx, c, func(e *engine) error {
				listen := c.String("listen")
				if listen == "" {
					listen = e.cfg.Server.Listen
				}
				return serve(ctx, c.String("config"), listen, e)
			})
		},
	}
}

// serve runs the API until SIGINT or SIGTERM. SIGHUP and edits to the
// config or rules file reload the validation rules.
func serve(ctx context.Context, configPath, listen string, e *engine) error {
	l := log.ForService("serve")

	server := api.NewServer(e.service, e.rules)
	server.SetMetricsHandler(promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	janitor := startJanitor(serveCtx, e, l)
	if janitor != nil {
		defer janitor.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		l.Infof("API listening on http://%s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watcher, watched := watchFiles(l, configPath, e.cfg.RulesFile)
	if watcher != nil {
		defer func() {
			if err := watcher.Close(); err != nil {
				l.Warnf("failed to close file watcher: %v", err)
			}
		}()
	}

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	if watcher != nil {
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	rulesFile := e.cfg.RulesFile
	reload := func(reason string) {
		l.Infof("%s, reloading rules", reason)
		path, rules, err := reloadRules(configPath, rulesFile)
		if err != nil {
			l.Errorf("failed to reload rules: %v", err)
			return
		}
		if path != rulesFile && watcher != nil && path != "" {
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				l.Warnf("failed to watch rules file %s: %v", path, err)
			}
			watched[filepath.Clean(path)] = true
		}
		rulesFile = path
		server.SetRules(rules)
		l.Infof("loaded %d validation rules", len(rules))
	}

	for {
		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				return fmt.Errorf("serving API: %w", err)
			}
			return nil
		case <-ctx.Done():
			return shutdown(httpServer, l)
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				reload("received SIGHUP")
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown(httpServer, l)
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			// Editors often replace files atomically.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				time.Sleep(100 * time.Millisecond)
				reload(fmt.Sprintf("%s changed (%s)", event.Name, event.Op))
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			l.Warnf("file watcher error: %v", err)
		}
	}
}

func shutdown(httpServer *http.Server, l *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API: %w", err)
	}
	l.Infof("API stopped")
	return nil
}

func startJanitor(ctx context.Context, e *engine, l *log.Logger) *cache.Janitor {
	purger, ok := e.store.(cache.Purger)
	interval := durationOr(e.cfg.Cache.PurgeInterval, config.DefaultPurgeInterval)
	if !ok || interval <= 0 {
		return nil
	}

	janitor := cache.NewJanitor(purger, interval)
	janitor.OnPurge(e.metrics.RecordPurge)
	if err := janitor.Start(ctx); err != nil {
		l.Warnf("cache janitor not started: %v", err)
		return nil
	}
	l.Infof("cache janitor purging every %s", formatDuration(interval))
	return janitor
}

// watchFiles watches the directories holding the given files so atomic
// replacements are noticed. It returns the set of watched file paths.
func watchFiles(l *log.Logger, paths ...string) (*fsnotify.Watcher, map[string]bool) {
	watched := make(map[string]bool)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Warnf("failed to create file watcher: %v", err)
		return nil, watched
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		watched[p] = true
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			l.Warnf("failed to watch %s: %v", dir, err)
			continue
		}
		dirs[dir] = true
		l.Debugf("watching %s for changes", dir)
	}
	return watcher, watched
}

// reloadRules re-reads the configuration to find the rules file, then loads
// it. Backend and cache settings only change on restart.
func reloadRules(configPath, current string) (string, core.Rules, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return current, nil, fmt.Errorf("loading config: %w", err)
	}
	log.Configure(log.GlobalDebug(), cfg.DebugServices)

	if cfg.RulesFile == "" {
		return "", nil, nil
	}
	rules, err := core.LoadRules(cfg.RulesFile)
	if err != nil {
		return current, nil, err
	}
	return cfg.RulesFile, rules, nil
}
