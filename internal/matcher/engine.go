// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Engine names accepted by NewEngine
const (
	EngineRE2     = "re2"
	EngineRegexp2 = "regexp2"
)

// DefaultMatchTimeout bounds a single regexp2 match
const DefaultMatchTimeout = 250 * time.Millisecond

// Span is a half-open character range [Start, End)
type Span struct {
	Start int
	End   int
}

// Regexp is a compiled, case-insensitive pattern
type Regexp interface {
	// FindAll returns every non-overlapping match, leftmost first, in
	// character offsets. On error the spans found so far are returned.
	FindAll(text string) ([]Span, error)
}

// Engine compiles catalog patterns
type Engine interface {
	Name() string
	Compile(pattern string) (Regexp, error)
}

// NewEngine returns the engine registered under name. An empty name
// selects RE2.
func NewEngine(name string, timeout time.Duration) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineRE2:
		return RE2{}, nil
	case EngineRegexp2:
		if timeout <= 0 {
			timeout = DefaultMatchTimeout
		}
		return Regexp2{Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown regex engine %q (available: %s, %s)", name, EngineRE2, EngineRegexp2)
	}
}

// RE2 uses the standard library engine. Matching runs in linear time.
//
// The standard library treats \b as an ASCII word boundary, so "matará"
// would match \bmatar. A \b at either edge of the pattern is therefore
// removed before compiling and checked against Unicode letters and
// digits around each match instead. A \b inside the pattern keeps the
// ASCII meaning.
type RE2 struct{}

func (RE2) Name() string { return EngineRE2 }

func (RE2) Compile(pattern string) (Regexp, error) {
	parsed, err := syntax.Parse(pattern, syntax.Perl|syntax.FoldCase)
	if err != nil {
		return nil, err
	}

	var leading, trailing bool
	if parsed.Op == syntax.OpConcat {
		subs := parsed.Sub
		if len(subs) > 0 && subs[0].Op == syntax.OpWordBoundary {
			leading = true
			subs = subs[1:]
		}
		if len(subs) > 0 && subs[len(subs)-1].Op == syntax.OpWordBoundary {
			trailing = true
			subs = subs[:len(subs)-1]
		}
		parsed.Sub = subs
	}

	re, err := regexp.Compile(parsed.String())
	if err != nil {
		return nil, err
	}
	return re2Regexp{re: re, leading: leading, trailing: trailing}, nil
}

type re2Regexp struct {
	re       *regexp.Regexp
	leading  bool
	trailing bool
}

func (r re2Regexp) FindAll(text string) ([]Span, error) {
	locs := r.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	// Byte offsets are increasing, so rune positions are counted once.
	spans := make([]Span, 0, len(locs))
	bytePos, runePos := 0, 0
	advance := func(to int) int {
		runePos += utf8.RuneCountInString(text[bytePos:to])
		bytePos = to
		return runePos
	}
	for _, loc := range locs {
		if r.leading && !isWordBoundary(text, loc[0]) || r.trailing && !isWordBoundary(text, loc[1]) {
			continue
		}
		start := advance(loc[0])
		end := advance(loc[1])
		spans = append(spans, Span{Start: start, End: end})
	}
	if len(spans) == 0 {
		return nil, nil
	}
	return spans, nil
}

// isWordBoundary reports whether exactly one side of byte offset i is a
// word character
func isWordBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Regexp2 is a backtracking engine with lookarounds and Unicode word
// boundaries. Every match is bounded by Timeout.
type Regexp2 struct {
	Timeout time.Duration
}

func (Regexp2) Name() string { return EngineRegexp2 }

func (e Regexp2) Compile(pattern string) (Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	if e.Timeout > 0 {
		re.MatchTimeout = e.Timeout
	}
	return regexp2Regexp{re: re}, nil
}

type regexp2Regexp struct {
	re *regexp2.Regexp
}

func (r regexp2Regexp) FindAll(text string) ([]Span, error) {
	var spans []Span
	m, err := r.re.FindStringMatch(text)
	for m != nil {
		spans = append(spans, Span{Start: m.Index, End: m.Index + m.Length})
		m, err = r.re.FindNextMatch(m)
	}
	return spans, err
}
