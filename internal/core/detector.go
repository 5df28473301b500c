// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core composes the catalog, matcher, automaton, scorer and
// highlighter into the analysis shared by the CLI and the web server.
package core

import (
	"sync/atomic"
	"time"

	"toxic-scan/internal/automaton"
	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"
	"toxic-scan/internal/highlight"
	"toxic-scan/internal/matcher"
	"toxic-scan/internal/observability"
	"toxic-scan/internal/scorer"
)

// AnalysisResult is the outcome of one analysis. It is returned by value
// and owned by the caller.
type AnalysisResult struct {
	IsToxic         bool                `json:"is_toxic" yaml:"is_toxic"`
	Level           detector.Severity   `json:"level" yaml:"level"`
	State           automaton.State     `json:"state" yaml:"state"`
	Path            []automaton.State   `json:"path" yaml:"path"`
	Types           []detector.Category `json:"types" yaml:"types"`
	MatchedPatterns []string            `json:"matched_patterns" yaml:"matched_patterns"`
	DetectedWords   []detector.Match    `json:"detected_words" yaml:"detected_words"`
	Confidence      float64             `json:"confidence" yaml:"confidence"`
	OriginalText    string              `json:"original_text" yaml:"original_text"`
	HighlightedText string              `json:"highlighted_text" yaml:"highlighted_text"`
	Warnings        []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Statistics describes the automaton and the loaded catalog
type Statistics struct {
	TotalStates    int                       `json:"total_states" yaml:"total_states"`
	TotalPatterns  int                       `json:"total_patterns" yaml:"total_patterns"`
	PatternsByType map[detector.Category]int `json:"patterns_by_type" yaml:"patterns_by_type"`
}

// MetricsSink receives per-analysis measurements
type MetricsSink interface {
	AnalysisCompleted(level detector.Severity, matches []detector.Match, duration time.Duration)
	PatternErrors(n int)
}

// Config holds the optional collaborators of a Detector
type Config struct {
	Engine    matcher.Engine // nil selects RE2
	Highlight highlight.Options
	Observer  *observability.StandardObserver
	Metrics   MetricsSink
}

// Detector classifies text. It is safe for concurrent use; the catalog
// can be replaced at any time with SwapCatalog.
type Detector struct {
	catalog   atomic.Pointer[catalog.Catalog]
	matcher   *matcher.Matcher
	highlight highlight.Options
	observer  *observability.StandardObserver
	metrics   MetricsSink
}

// NewDetector creates a detector over cat
func NewDetector(cat *catalog.Catalog, cfg Config) *Detector {
	if cat == nil {
		cat = catalog.New()
	}
	d := &Detector{
		matcher:   matcher.New(cfg.Engine),
		highlight: cfg.Highlight,
		observer:  cfg.Observer,
		metrics:   cfg.Metrics,
	}
	d.catalog.Store(cat)
	return d
}

// Catalog returns the catalog currently in use
func (d *Detector) Catalog() *catalog.Catalog {
	return d.catalog.Load()
}

// SwapCatalog replaces the catalog. Analyses already running finish on
// the snapshot they started with.
func (d *Detector) SwapCatalog(cat *catalog.Catalog) {
	if cat != nil {
		d.catalog.Store(cat)
	}
}

// Engine returns the regex engine name
func (d *Detector) Engine() string {
	return d.matcher.Engine().Name()
}

// ValidatePattern compiles pattern with the detector's engine
func (d *Detector) ValidatePattern(pattern string) error {
	return d.matcher.Validate(pattern)
}

// AddPattern appends a pattern to the current catalog for the lifetime
// of the process. The pattern is compiled lazily on the next analysis.
func (d *Detector) AddPattern(pattern string, category detector.Category) error {
	return d.Catalog().AddPattern(category, pattern)
}

// Statistics reports the state count and pattern counts per category
func (d *Detector) Statistics() Statistics {
	stats := d.Catalog().Statistics()
	return Statistics{
		TotalStates:    len(automaton.States),
		TotalPatterns:  stats.TotalPatterns,
		PatternsByType: stats.ByCategory,
	}
}

// ProcessText classifies text
func (d *Detector) ProcessText(text string) AnalysisResult {
	return d.Trace(text, nil)
}

// Trace classifies text and reports every step to tracer, which may be nil
func (d *Detector) Trace(text string, tracer observability.Tracer) AnalysisResult {
	start := time.Now()
	if tracer == nil {
		tracer = observability.NopTracer{}
	}

	var finishTiming func(bool, map[string]interface{})
	if d.observer != nil {
		finishTiming = d.observer.StartTiming("detector", "process_text", "text")
	}

	w := newWalk(tracer)
	tracer.Start(text, w.state)

	scan := d.matcher.Scan(text, d.Catalog().Snapshot(), w)

	result := AnalysisResult{
		IsToxic:         len(scan.Matches) > 0,
		Level:           w.state.Level(),
		State:           w.state,
		Path:            w.path,
		Types:           w.types,
		MatchedPatterns: w.patterns,
		DetectedWords:   scan.Matches,
		Confidence:      scorer.Score(len(scan.Matches)),
		OriginalText:    text,
		HighlightedText: highlight.HTML(text, scan.Matches, d.highlight),
	}
	if result.DetectedWords == nil {
		result.DetectedWords = []detector.Match{}
	}
	for _, err := range scan.Errors {
		result.Warnings = append(result.Warnings, err.Error())
	}

	tracer.Completed(observability.Summary{
		State:      result.State,
		Level:      result.Level,
		Types:      result.Types,
		Matches:    len(result.DetectedWords),
		Confidence: result.Confidence,
	})

	if d.metrics != nil {
		d.metrics.AnalysisCompleted(result.Level, result.DetectedWords, time.Since(start))
		if len(scan.Errors) > 0 {
			d.metrics.PatternErrors(len(scan.Errors))
		}
	}
	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"match_count": len(result.DetectedWords),
			"level":       string(result.Level),
			"state":       result.State.ID(),
		})
	}

	return result
}

// walk folds kept matches through the automaton as the matcher reports
// them, so transitions follow scan order.
type walk struct {
	tracer       observability.Tracer
	state        automaton.State
	path         []automaton.State
	step         int
	types        []detector.Category
	patterns     []string
	seenTypes    map[detector.Category]bool
	seenPatterns map[string]bool
}

func newWalk(tracer observability.Tracer) *walk {
	return &walk{
		tracer:       tracer,
		state:        automaton.Initial,
		path:         []automaton.State{automaton.Initial},
		types:        []detector.Category{},
		patterns:     []string{},
		seenTypes:    make(map[detector.Category]bool),
		seenPatterns: make(map[string]bool),
	}
}

func (w *walk) PatternSkipped(err error) {
	w.tracer.PatternSkipped(err)
}

func (w *walk) MatchDuplicate(m detector.Match) {
	w.tracer.MatchDuplicate(m)
}

func (w *walk) MatchKept(m detector.Match) {
	from := w.state
	w.state = automaton.Transition(from, m.Category)
	w.path = append(w.path, w.state)
	w.step++
	w.tracer.Transition(w.step, m, from, w.state)

	if !w.seenTypes[m.Category] {
		w.seenTypes[m.Category] = true
		w.types = append(w.types, m.Category)
	}
	if !w.seenPatterns[m.Pattern] {
		w.seenPatterns[m.Pattern] = true
		w.patterns = append(w.patterns, m.Pattern)
	}
}
