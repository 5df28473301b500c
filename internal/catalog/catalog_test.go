// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"toxic-scan/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "threat": ["\\bte voy a matar\\b", "\\bmatar\\b"],
  "insult": ["\\bidiota\\b"],
  "harassment": []
}`

func TestParseJSONPreservesOrder(t *testing.T) {
	c, err := Parse([]byte(sampleJSON), "sample.json")
	require.NoError(t, err)

	var order []detector.Category
	for category, patterns := range c.IterCategories() {
		order = append(order, category)
		if category == detector.Threat {
			assert.Equal(t, []string{`\bte voy a matar\b`, `\bmatar\b`}, patterns)
		}
	}
	assert.Equal(t, []detector.Category{detector.Threat, detector.Insult, detector.Harassment}, order)
	assert.Equal(t, "sample.json", c.Source())
}

func TestParseYAML(t *testing.T) {
	doc := `
insult:
  - '\bidiota\b'
  - "\\btonto\\b"
hate: ['\bodio\b']
`
	c, err := Parse([]byte(doc), "inline")
	require.NoError(t, err)

	stats := c.Statistics()
	assert.Equal(t, 3, stats.TotalPatterns)
	assert.Equal(t, 2, stats.ByCategory[detector.Insult])
	assert.Equal(t, 1, stats.ByCategory[detector.Hate])
	assert.Equal(t, []detector.Category{detector.Insult, detector.Hate}, stats.CategoryOrder)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		kind error
		key  string
	}{
		{"broken json", `{"insult": [`, ErrInvalidSyntax, ""},
		{"empty document", ``, ErrInvalidSyntax, ""},
		{"top level list", `["idiota"]`, ErrInvalidSyntax, ""},
		{"top level scalar", `"idiota"`, ErrInvalidSyntax, ""},
		{"duplicate key", "insult: [a]\ninsult: [b]\n", ErrInvalidSyntax, "insult"},
		{"unknown category", `{"spam": ["x"]}`, ErrUnknownCategory, "spam"},
		{"case sensitive key", `{"Insult": ["x"]}`, ErrUnknownCategory, "Insult"},
		{"string value", `{"insult": "idiota"}`, ErrMalformedEntry, "insult"},
		{"null value", `{"insult": null}`, ErrMalformedEntry, "insult"},
		{"mapping value", `{"insult": {"a": "b"}}`, ErrMalformedEntry, "insult"},
		{"number item", `{"insult": ["idiota", 7]}`, ErrMalformedEntry, "insult"},
		{"nested list item", `{"insult": [["idiota"]]}`, ErrMalformedEntry, "insult"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "test")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.key, cfgErr.Key)
			assert.Equal(t, "test", cfgErr.Source)
		})
	}
}

func TestParseDoesNotCompilePatterns(t *testing.T) {
	c, err := Parse([]byte(`{"insult": ["(unclosed"]}`), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Snapshot().Total())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestLoadUnreadableSource(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.NotErrorIs(t, err, ErrSourceNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Snapshot().Total())
}

func TestAddPattern(t *testing.T) {
	c, err := Parse([]byte(`{"insult": ["\\bidiota\\b"]}`), "test")
	require.NoError(t, err)

	require.NoError(t, c.AddPattern(detector.Insult, `\bidiota\b`))
	require.NoError(t, c.AddPattern(detector.Profanity, `\bmierda\b`))

	snap := c.Snapshot()
	require.Len(t, snap.Groups, 2)
	assert.Equal(t, detector.Insult, snap.Groups[0].Category)
	assert.Len(t, snap.Groups[0].Patterns, 2, "duplicates are tolerated")
	assert.Equal(t, detector.Profanity, snap.Groups[1].Category, "new category goes last")

	err = c.AddPattern(detector.Category("spam"), "x")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSnapshotIsIsolated(t *testing.T) {
	c := New()
	require.NoError(t, c.AddPattern(detector.Hate, "a"))

	snap := c.Snapshot()
	require.NoError(t, c.AddPattern(detector.Hate, "b"))

	assert.Equal(t, 1, snap.Total())
	assert.Equal(t, 2, c.Snapshot().Total())
}

func TestCloneIsIndependent(t *testing.T) {
	c := New()
	require.NoError(t, c.AddPattern(detector.Hate, "a"))

	clone := c.Clone()
	require.NoError(t, clone.AddPattern(detector.Hate, "b"))

	assert.Equal(t, 1, c.Snapshot().Total())
	assert.Equal(t, 2, clone.Snapshot().Total())
}

func TestIterCategoriesEarlyStop(t *testing.T) {
	c, err := Parse([]byte(sampleJSON), "test")
	require.NoError(t, err)

	seen := 0
	for range c.IterCategories() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestConcurrentAddAndSnapshot(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.AddPattern(detector.Insult, "x")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Snapshot().Total()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, c.Snapshot().Total())
}
