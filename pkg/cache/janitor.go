package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/ontosearch/pkg/log"
)

// Janitor purges expired entries of a store on a fixed interval.
type Janitor struct {
	store    Purger
	interval time.Duration
	log      *log.Logger

	mu        sync.Mutex
	wg        sync.WaitGroup
	ctxCancel context.CancelFunc
	running   bool
	onPurge   func(removed int)
}

// NewJanitor returns a janitor for store. It does nothing until started.
func NewJanitor(store Purger, interval time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		log:      log.ForService("cache"),
	}
}

// OnPurge registers fn to be called after every successful purge.
func (j *Janitor) OnPurge(fn func(removed int)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onPurge = fn
}

// Start launches the purge loop. It stops when ctx is cancelled or Stop is
// called.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor is already running")
	}
	if j.interval <= 0 {
		return fmt.Errorf("invalid purge interval %v", j.interval)
	}

	ctx, j.ctxCancel = context.WithCancel(ctx)
	j.running = true

	ticker := time.NewTicker(j.interval)
	j.wg.Add(1)
	go j.run(ctx, ticker)

	j.log.Debugf("purging expired entries every %v", j.interval)
	return nil
}

func (j *Janitor) run(ctx context.Context, ticker *time.Ticker) {
	defer j.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.store.Purge(ctx)
			if err != nil {
				j.log.Warnf("purge failed: %v", err)
				continue
			}
			if removed > 0 {
				j.log.Debugf("purged %d expired entries", removed)
			}
			j.mu.Lock()
			hook := j.onPurge
			j.mu.Unlock()
			if hook != nil {
				hook(removed)
			}
		}
	}
}

// Stop halts the loop and waits for it to exit. Calling Stop on a janitor
// that is not running does nothing.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.ctxCancel()
	j.running = false
	j.mu.Unlock()

	j.wg.Wait()
}

// IsRunning reports whether the purge loop is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
