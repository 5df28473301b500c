// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package watch reloads the pattern catalog when its file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/core"
	"toxic-scan/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a reload
const DefaultDebounce = 200 * time.Millisecond

// ReloadMetrics records reload outcomes
type ReloadMetrics interface {
	CatalogLoaded(stats catalog.Statistics)
	ReloadFinished(err error)
}

// Reloader rebuilds the catalog and swaps it into a detector
type Reloader struct {
	Loader   core.CatalogLoader
	Detector *core.Detector
	Metrics  ReloadMetrics // optional
	Log      logging.Logger

	// serializes load and swap so an older load never replaces a newer one
	mu sync.Mutex
}

// Reload loads a fresh catalog. On failure the detector keeps the
// catalog it has. Concurrent calls run one at a time.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cat, err := r.Loader.Load(ctx)
	if r.Metrics != nil {
		r.Metrics.ReloadFinished(err)
	}
	if err != nil {
		r.logger().Error("catalog reload failed", logging.String("path", r.Loader.Path), logging.Error(err))
		return err
	}

	r.Detector.SwapCatalog(cat)
	stats := cat.Statistics()
	if r.Metrics != nil {
		r.Metrics.CatalogLoaded(stats)
	}
	r.logger().Info("catalog reloaded",
		logging.String("path", r.Loader.Path),
		logging.Int("patterns", stats.TotalPatterns))
	return nil
}

func (r *Reloader) logger() logging.Logger {
	if r.Log == nil {
		return logging.NewNop()
	}
	return r.Log
}

// Watcher triggers a Reloader when the catalog file is written
type Watcher struct {
	reloader *Reloader
	path     string
	debounce time.Duration
	log      logging.Logger
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for the reloader's catalog path
func New(r *Reloader, debounce time.Duration, log logging.Logger) (*Watcher, error) {
	if r == nil || r.Detector == nil {
		return nil, fmt.Errorf("reloader with a detector is required")
	}
	if r.Loader.Path == "" {
		return nil, fmt.Errorf("catalog path cannot be empty")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.NewNop()
	}
	path, err := filepath.Abs(r.Loader.Path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Editors often replace the file, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		reloader: r,
		path:     path,
		debounce: debounce,
		log:      log.With(logging.String("component", "watch")),
		watcher:  w,
	}, nil
}

// Run processes events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()
	defer w.watcher.Close()

	w.log.Info("watching catalog",
		logging.String("path", w.path),
		logging.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("catalog event", logging.String("op", event.Op.String()))
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && name == w.path
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		_ = w.reloader.Reload(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
