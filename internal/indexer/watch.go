package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/segment"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of renames a single commit produces.
const reloadDelay = 250 * time.Millisecond

// Watch reloads the engine whenever a new commit lands in its data directory,
// calling onReload after each successful reload. A commit renames the terms
// file into place last, so its arrival marks a complete index. Watch blocks
// until ctx ends.
func (e *Engine) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating index watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(e.cfg.DataDir); err != nil {
		return fmt.Errorf("watching %s: %w", e.cfg.DataDir, err)
	}
	e.logger.Info("watching index directory for commits", "dir", e.cfg.DataDir)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == segment.TermsFile && ev.Has(fsnotify.Create) {
				pending = time.After(reloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("index watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := e.Reload(); err != nil {
				e.logger.Error("index reload failed", "error", err)
				continue
			}
			if onReload != nil {
				onReload()
			}
		}
	}
}
