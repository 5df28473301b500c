// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package matcher finds catalog pattern occurrences in text.
package matcher

import (
	"fmt"
	"sync"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"
)

// PatternCompileError reports a catalog pattern the engine rejected
type PatternCompileError struct {
	Category detector.Category
	Pattern  string
	Err      error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("pattern %q (%s) skipped: %v", e.Pattern, e.Category, e.Err)
}

func (e *PatternCompileError) Unwrap() error { return e.Err }

// PatternMatchError reports a pattern that failed while matching, such as
// a regexp2 timeout. Spans found before the failure are kept.
type PatternMatchError struct {
	Category detector.Category
	Pattern  string
	Err      error
}

func (e *PatternMatchError) Error() string {
	return fmt.Sprintf("pattern %q (%s) stopped early: %v", e.Pattern, e.Category, e.Err)
}

func (e *PatternMatchError) Unwrap() error { return e.Err }

// Observer receives scan progress in scan order
type Observer interface {
	PatternSkipped(err error)
	MatchKept(m detector.Match)
	MatchDuplicate(m detector.Match)
}

// ScanResult holds the kept matches in scan order
type ScanResult struct {
	Matches    []detector.Match
	Duplicates int
	Errors     []error
}

type compiled struct {
	re  Regexp
	err error
}

// Matcher scans text against catalog snapshots. Compiled patterns are
// cached, so each pattern compiles at most once per Matcher.
type Matcher struct {
	engine Engine
	cache  sync.Map // pattern string -> compiled
}

// New creates a matcher for engine. A nil engine selects RE2.
func New(engine Engine) *Matcher {
	if engine == nil {
		engine = RE2{}
	}
	return &Matcher{engine: engine}
}

// Engine returns the engine patterns are compiled with
func (m *Matcher) Engine() Engine {
	return m.engine
}

// Validate compiles pattern eagerly without caching it
func (m *Matcher) Validate(pattern string) error {
	_, err := m.engine.Compile(pattern)
	return err
}

func (m *Matcher) compile(pattern string) (Regexp, error) {
	if v, ok := m.cache.Load(pattern); ok {
		c := v.(compiled)
		return c.re, c.err
	}
	re, err := m.engine.Compile(pattern)
	v, _ := m.cache.LoadOrStore(pattern, compiled{re: re, err: err})
	c := v.(compiled)
	return c.re, c.err
}

// Scan visits categories in snapshot order, patterns in list order and
// matches leftmost first. A span already kept by an earlier pattern is
// dropped, as are empty matches. obs may be nil.
func (m *Matcher) Scan(text string, snap catalog.Snapshot, obs Observer) ScanResult {
	var result ScanResult
	var runes []rune
	seen := make(map[Span]struct{})

	for _, group := range snap.Groups {
		for _, pattern := range group.Patterns {
			re, err := m.compile(pattern)
			if err != nil {
				skipErr := &PatternCompileError{Category: group.Category, Pattern: pattern, Err: err}
				result.Errors = append(result.Errors, skipErr)
				if obs != nil {
					obs.PatternSkipped(skipErr)
				}
				continue
			}

			spans, err := re.FindAll(text)
			if err != nil {
				matchErr := &PatternMatchError{Category: group.Category, Pattern: pattern, Err: err}
				result.Errors = append(result.Errors, matchErr)
				if obs != nil {
					obs.PatternSkipped(matchErr)
				}
			}
			if len(spans) == 0 {
				continue
			}

			if runes == nil {
				runes = []rune(text)
			}
			for _, span := range spans {
				if span.Start >= span.End {
					continue
				}
				match := detector.Match{
					Text:     string(runes[span.Start:span.End]),
					Start:    span.Start,
					End:      span.End,
					Pattern:  pattern,
					Category: group.Category,
				}
				if _, dup := seen[span]; dup {
					result.Duplicates++
					if obs != nil {
						obs.MatchDuplicate(match)
					}
					continue
				}
				seen[span] = struct{}{}
				result.Matches = append(result.Matches, match)
				if obs != nil {
					obs.MatchKept(match)
				}
			}
		}
	}

	return result
}
