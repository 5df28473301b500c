// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"testing"
	"time"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAnalysisCompleted(t *testing.T) {
	c := New(prometheus.NewRegistry())
	matches := []detector.Match{
		{Category: detector.Insult},
		{Category: detector.Insult},
		{Category: detector.Threat},
	}
	c.AnalysisCompleted(detector.Extreme, matches, 2*time.Millisecond)
	c.AnalysisCompleted(detector.Safe, nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.AnalysesTotal.WithLabelValues("extreme")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AnalysesTotal.WithLabelValues("safe")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.AnalysesTotal.WithLabelValues("low")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CategoryDetections.WithLabelValues("insult")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CategoryDetections.WithLabelValues("threat")))
}

func TestPatternErrorsAndReloads(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.PatternErrors(3)
	c.ReloadFinished(nil)
	c.ReloadFinished(errors.New("bad"))
	c.ReloadFinished(errors.New("bad"))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.PatternErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CatalogReloads.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CatalogReloads.WithLabelValues("failure")))
}

func TestCatalogLoaded(t *testing.T) {
	c := New(prometheus.NewRegistry())
	cat, err := catalog.Parse([]byte(`{"insult": ["a", "b"], "hate": ["c"]}`), "test")
	assert.NoError(t, err)

	c.CatalogLoaded(cat.Statistics())
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CatalogPatterns.WithLabelValues("insult")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CatalogPatterns.WithLabelValues("hate")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.CatalogPatterns))
}
