// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the category tagged pattern sets used by the matcher.
//
// A catalog is a mapping from category name to an ordered list of regular
// expression strings, read from YAML or JSON. Category order is the order
// of first appearance in the source and is preserved for scanning. Patterns
// are kept as strings; compilation happens lazily in the matcher.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"toxic-scan/internal/detector"

	"gopkg.in/yaml.v3"
)

// Group is one category and its patterns in list order
type Group struct {
	Category detector.Category
	Patterns []string
}

// Catalog is the mutable, concurrency-safe pattern store. Readers take
// a Snapshot and scan it without holding the lock.
type Catalog struct {
	mu       sync.RWMutex
	source   string
	order    []detector.Category
	patterns map[detector.Category][]string
}

// New returns an empty catalog
func New() *Catalog {
	return &Catalog{
		source:   "memory",
		patterns: make(map[detector.Category][]string),
	}
}

// Load reads and validates the catalog file at path
func Load(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newConfigError(cleanPath, "", ErrSourceNotFound, nil)
		}
		return nil, newConfigError(cleanPath, "", ErrSourceUnreadable, err)
	}
	return Parse(data, cleanPath)
}

// Parse validates a YAML or JSON document. source labels errors.
func Parse(data []byte, source string) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newConfigError(source, "", ErrInvalidSyntax, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, newConfigError(source, "", ErrInvalidSyntax, errors.New("empty document"))
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, newConfigError(source, "", ErrInvalidSyntax,
			fmt.Errorf("line %d: top level must be a mapping of category to pattern list", root.Line))
	}

	c := New()
	c.source = source
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], resolve(root.Content[i+1])
		key := keyNode.Value

		category := detector.Category(key)
		if keyNode.Kind != yaml.ScalarNode || !category.Valid() {
			return nil, newConfigError(source, key, ErrUnknownCategory, nil)
		}
		if _, dup := c.patterns[category]; dup {
			return nil, newConfigError(source, key, ErrInvalidSyntax,
				fmt.Errorf("line %d: duplicate key", keyNode.Line))
		}

		patterns, err := decodePatterns(valueNode)
		if err != nil {
			return nil, newConfigError(source, key, ErrMalformedEntry, err)
		}

		c.order = append(c.order, category)
		c.patterns[category] = patterns
	}

	return c, nil
}

func decodePatterns(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of patterns", node.Line)
	}
	patterns := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		item = resolve(item)
		if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
			return nil, fmt.Errorf("line %d: pattern must be a string", item.Line)
		}
		patterns = append(patterns, item.Value)
	}
	return patterns, nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// Source returns the path or label the catalog was parsed from
func (c *Catalog) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// AddPattern appends a pattern to a category. A category that was not
// in the source is placed after every loaded category. Duplicates are kept.
func (c *Catalog) AddPattern(category detector.Category, pattern string) error {
	if !category.Valid() {
		return fmt.Errorf("add pattern: %w %q", ErrUnknownCategory, category)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.patterns[category]; !exists {
		c.order = append(c.order, category)
	}
	c.patterns[category] = append(c.patterns[category], pattern)
	return nil
}

// Clone returns an independent copy that can be extended without
// affecting the receiver
func (c *Catalog) Clone() *Catalog {
	snap := c.Snapshot()
	clone := New()
	clone.source = c.Source()
	for _, g := range snap.Groups {
		clone.order = append(clone.order, g.Category)
		clone.patterns[g.Category] = g.Patterns
	}
	return clone
}

// Snapshot copies the catalog for one read-only pass
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make([]Group, 0, len(c.order))
	for _, category := range c.order {
		patterns := make([]string, len(c.patterns[category]))
		copy(patterns, c.patterns[category])
		groups = append(groups, Group{Category: category, Patterns: patterns})
	}
	return Snapshot{Groups: groups}
}

// IterCategories yields each category with its patterns in load order.
// The sequence reads from a snapshot taken when it starts.
func (c *Catalog) IterCategories() iter.Seq2[detector.Category, []string] {
	return func(yield func(detector.Category, []string) bool) {
		for _, g := range c.Snapshot().Groups {
			if !yield(g.Category, g.Patterns) {
				return
			}
		}
	}
}

// Statistics summarises pattern counts
type Statistics struct {
	TotalPatterns   int                       `json:"total_patterns" yaml:"total_patterns"`
	ByCategory      map[detector.Category]int `json:"patterns_by_type" yaml:"patterns_by_type"`
	CategoryOrder   []detector.Category       `json:"category_order" yaml:"category_order"`
	TotalCategories int                       `json:"total_categories" yaml:"total_categories"`
}

// Statistics counts patterns per category
func (c *Catalog) Statistics() Statistics {
	return c.Snapshot().Statistics()
}

// Snapshot is an immutable view of a catalog
type Snapshot struct {
	Groups []Group
}

// Total returns the number of patterns across all categories
func (s Snapshot) Total() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Patterns)
	}
	return n
}

// Statistics counts patterns per category
func (s Snapshot) Statistics() Statistics {
	stats := Statistics{
		ByCategory:      make(map[detector.Category]int, len(s.Groups)),
		TotalCategories: len(s.Groups),
	}
	for _, g := range s.Groups {
		stats.ByCategory[g.Category] = len(g.Patterns)
		stats.CategoryOrder = append(stats.CategoryOrder, g.Category)
		stats.TotalPatterns += len(g.Patterns)
	}
	return stats
}
