package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces
const reloadDelay = 200 * time.Millisecond

// Watch reloads the catalog whenever a catalog file in its directory changes,
// until ctx is done. onReload, when set, receives the result of every reload.
// Watching the built-in sample is a no-op.
func (c *Catalog) Watch(ctx context.Context, onReload func(error)) error {
	if c.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}
	c.logger.Info("watching catalog directory", "dir", c.dir)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsCatalogFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			c.logger.Debug("catalog file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog watcher error", "error", err)

		case <-timer.C:
			err := c.Reload(ctx)
			if err != nil {
				c.logger.Error("catalog reload failed, keeping previous contents", "error", err)
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}
