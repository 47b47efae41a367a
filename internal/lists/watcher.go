// Package lists manages the snipe list and the blacklist.
package lists

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type WatcherConfig struct {
	Name Name
	// File is merged with the Redis set; either may be absent.
	File     string
	Store    *Store
	Interval time.Duration
	Logger   *logrus.Logger
}

// Watcher holds an in-memory copy of a list and refreshes it periodically.
type Watcher struct {
	cfg     WatcherConfig
	entries atomic.Pointer[map[string]struct{}]
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	w := &Watcher{cfg: cfg}
	empty := map[string]struct{}{}
	w.entries.Store(&empty)
	return w
}

func (w *Watcher) Name() Name { return w.cfg.Name }

// Refresh reloads the list. On error the previous entries stay in place.
func (w *Watcher) Refresh(ctx context.Context) error {
	fromFile, err := LoadFile(w.cfg.File)
	if err != nil {
		return err
	}

	next := make(map[string]struct{}, len(fromFile))
	for _, e := range fromFile {
		next[e] = struct{}{}
	}

	if w.cfg.Store != nil {
		members, err := w.cfg.Store.Members(ctx, w.cfg.Name)
		if err != nil {
			return err
		}
		for _, e := range members {
			next[e] = struct{}{}
		}
	}

	w.entries.Store(&next)
	return nil
}

// Run refreshes the list every Interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	if w.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				w.cfg.Logger.WithError(err).WithField("list", w.cfg.Name).Warn("list refresh failed")
			}
		}
	}
}

func (w *Watcher) Contains(entry string) bool {
	_, ok := (*w.entries.Load())[entry]
	return ok
}

func (w *Watcher) Len() int {
	return len(*w.entries.Load())
}
