// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for analyses and the
// pattern catalog.
package metrics

import (
	"time"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups every toxic-scan collector
type Collectors struct {
	// toxicscan_analyses_total{level}
	AnalysesTotal *prometheus.CounterVec
	// toxicscan_category_detections_total{category}
	CategoryDetections *prometheus.CounterVec
	// toxicscan_pattern_errors_total
	PatternErrorsTotal prometheus.Counter
	// toxicscan_analysis_duration_seconds
	AnalysisDuration prometheus.Histogram
	// toxicscan_catalog_patterns{category}
	CatalogPatterns *prometheus.GaugeVec
	// toxicscan_catalog_reloads_total{result=success|failure}
	CatalogReloads *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	c := &Collectors{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxicscan_analyses_total",
			Help: "Number of analyses by final toxicity level",
		}, []string{"level"}),
		CategoryDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxicscan_category_detections_total",
			Help: "Number of kept matches by toxicity category",
		}, []string{"category"}),
		PatternErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "toxicscan_pattern_errors_total",
			Help: "Patterns skipped during analyses because they failed to compile or match",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "toxicscan_analysis_duration_seconds",
			Help:    "Time spent classifying one text",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		CatalogPatterns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toxicscan_catalog_patterns",
			Help: "Patterns currently loaded per category",
		}, []string{"category"}),
		CatalogReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxicscan_catalog_reloads_total",
			Help: "Catalog reload attempts by result",
		}, []string{"result"}),
	}

	// Pre-create label values so they are exported at zero
	for _, s := range detector.Severities {
		c.AnalysesTotal.WithLabelValues(string(s))
	}
	for _, cat := range detector.Categories {
		c.CategoryDetections.WithLabelValues(string(cat))
	}
	return c
}

// AnalysisCompleted records one finished analysis
func (c *Collectors) AnalysisCompleted(level detector.Severity, matches []detector.Match, duration time.Duration) {
	c.AnalysesTotal.WithLabelValues(string(level)).Inc()
	for _, m := range matches {
		c.CategoryDetections.WithLabelValues(string(m.Category)).Inc()
	}
	c.AnalysisDuration.Observe(duration.Seconds())
}

// PatternErrors records skipped patterns
func (c *Collectors) PatternErrors(n int) {
	c.PatternErrorsTotal.Add(float64(n))
}

// CatalogLoaded updates the per-category pattern gauge
func (c *Collectors) CatalogLoaded(stats catalog.Statistics) {
	c.CatalogPatterns.Reset()
	for category, n := range stats.ByCategory {
		c.CatalogPatterns.WithLabelValues(string(category)).Set(float64(n))
	}
}

// ReloadFinished counts a reload attempt
func (c *Collectors) ReloadFinished(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.CatalogReloads.WithLabelValues(result).Inc()
}
