package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/scenecore/internal/engine"
	"github.com/roach88/scenecore/internal/node"
)

// specWatcher reloads a scene when the .cue files of its directory change.
type specWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// watchSpecs starts watching dir. Each change to a .cue file recompiles
// the scene called name and, if it still validates, queues a reload. A
// scene that fails to load is logged and the running scene is kept.
func watchSpecs(ctx context.Context, dir, name string, reg *node.Registry, eng *engine.Engine, logger *slog.Logger) (*specWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	sw := &specWatcher{watcher: w, done: make(chan struct{})}
	go func() {
		defer close(sw.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isSpecChange(ev) {
					continue
				}
				logger.Debug("spec changed", "file", ev.Name, "op", ev.Op.String())
				spec, err := loadScene(dir, name, reg)
				if err != nil {
					logger.Error("reload skipped", "scene", name, "error", err)
					continue
				}
				if !eng.Enqueue(reloadMutation(spec, logger)) {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch error", "error", err)
			}
		}
	}()
	return sw, nil
}

// isSpecChange reports whether ev changes the content of a .cue file.
func isSpecChange(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".cue" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Close stops the watcher and waits for its goroutine.
func (sw *specWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}
