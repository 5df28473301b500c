// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"
)

// PatternSource supplies custom patterns stored outside the catalog file
type PatternSource interface {
	ActivePatterns(ctx context.Context) ([]detector.PatternEntry, error)
}

// CatalogLoader builds a catalog from the base file plus any active
// custom patterns
type CatalogLoader struct {
	Path   string
	Source PatternSource // optional
}

// Load reads the base catalog and appends custom patterns in the order
// the source returns them
func (l CatalogLoader) Load(ctx context.Context) (*catalog.Catalog, error) {
	cat, err := catalog.Load(l.Path)
	if err != nil {
		return nil, err
	}
	if l.Source == nil {
		return cat, nil
	}

	custom, err := l.Source.ActivePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom patterns: %w", err)
	}
	for _, entry := range custom {
		if err := cat.AddPattern(entry.Category, entry.Pattern); err != nil {
			return nil, fmt.Errorf("custom pattern %q: %w", entry.Pattern, err)
		}
	}
	return cat, nil
}

// Reload rebuilds the catalog and swaps it into d. On error d keeps its
// current catalog.
func (l CatalogLoader) Reload(ctx context.Context, d *Detector) error {
	cat, err := l.Load(ctx)
	if err != nil {
		return err
	}
	d.SwapCatalog(cat)
	return nil
}
