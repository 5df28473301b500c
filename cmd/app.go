// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"toxic-scan/internal/config"
	"toxic-scan/internal/core"
	"toxic-scan/internal/highlight"
	"toxic-scan/internal/logging"
	"toxic-scan/internal/matcher"
	"toxic-scan/internal/metrics"
	"toxic-scan/internal/observability"
	"toxic-scan/internal/store"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// storeMode controls whether a command opens the SQLite store
type storeMode int

const (
	storeNone      storeMode = iota
	storeIfPresent           // open only an existing database
	storeIfEnabled           // open or create when store.enabled is set
	storeRequired
)

// app is the set of collaborators built from the configuration
type app struct {
	cfg      *config.Config
	log      logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collectors
	observer *observability.StandardObserver
	engine   matcher.Engine
	store    *store.Store
	loader   core.CatalogLoader
	detector *core.Detector
}

// loadConfig resolves the configuration file, the environment and the
// persistent flags, in that order
func loadConfig(g *globalOptions) (*config.Config, error) {
	path := g.configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if g.format != "" {
		cfg.Defaults.Format = g.format
	}
	if g.noColor {
		cfg.Defaults.NoColor = true
	}
	if g.debug {
		cfg.Defaults.Debug = true
		cfg.Logging.Level = "debug"
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, g *globalOptions, mode storeMode, debugOut io.Writer) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	engine, err := matcher.NewEngine(cfg.Engine.Name, cfg.Engine.MatchTimeout)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, engine: engine}
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)
	if cfg.Defaults.Debug {
		a.observer = observability.NewStandardObserver(observability.ObservabilityDebug, debugOut)
	}

	if err := a.openStore(mode); err != nil {
		a.close()
		return nil, err
	}

	a.loader = core.CatalogLoader{Path: cfg.Catalog.Path}
	if a.store != nil {
		a.loader.Source = a.store
	}
	cat, err := a.loader.Load(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.metrics.CatalogLoaded(cat.Statistics())

	a.detector = core.NewDetector(cat, core.Config{
		Engine:    engine,
		Highlight: highlight.Options{EscapeUnmatched: cfg.Highlight.EscapeUnmatched},
		Observer:  a.observer,
		Metrics:   a.metrics,
	})
	log.Debug("detector ready",
		logging.String("catalog", cfg.Catalog.Path),
		logging.String("engine", engine.Name()),
		logging.Int("patterns", cat.Statistics().TotalPatterns),
		logging.Bool("store", a.store != nil))
	return a, nil
}

func (a *app) openStore(mode storeMode) error {
	switch mode {
	case storeNone:
		return nil
	case storeIfPresent:
		if !a.cfg.Store.Enabled || !fileExists(a.cfg.Store.Path) {
			return nil
		}
	case storeIfEnabled:
		if !a.cfg.Store.Enabled {
			return nil
		}
	case storeRequired:
		if !a.cfg.Store.Enabled {
			return errors.New("persistence is disabled (store.enabled is false)")
		}
	}

	s, err := store.Open(a.cfg.Store.Path, a.log)
	if err != nil {
		return err
	}
	a.store = s
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close store", logging.Error(err))
		}
	}
	_ = a.log.Sync()
}

// requireStore fails commands that only make sense with persistence
func (a *app) requireStore() error {
	if a.store == nil {
		return errors.New("no analysis database found; enable the store and run serve or analyze --save first")
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// useColor reports whether output written to w should carry ANSI codes
// and syncs fatih/color with the decision
func useColor(cfg *config.Config, w io.Writer) bool {
	enabled := !cfg.Defaults.NoColor && isTerminal(w)
	color.NoColor = !enabled
	return enabled
}

// writeStructured prints v as JSON or YAML. It returns false for any
// other format so the caller can render text.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case "text":
		return false, nil
	default:
		return true, fmt.Errorf("format %q is not supported by this command (use text, json or yaml)", format)
	}
}
