// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, doc string) catalog.Snapshot {
	t.Helper()
	c, err := catalog.Parse([]byte(doc), "test")
	require.NoError(t, err)
	return c.Snapshot()
}

type recordingObserver struct {
	kept, dups []detector.Match
	skipped    []error
}

func (r *recordingObserver) PatternSkipped(err error)        { r.skipped = append(r.skipped, err) }
func (r *recordingObserver) MatchKept(m detector.Match)      { r.kept = append(r.kept, m) }
func (r *recordingObserver) MatchDuplicate(m detector.Match) { r.dups = append(r.dups, m) }

func TestScanCaseInsensitiveKeepsCasing(t *testing.T) {
	snap := snapshot(t, `{"insult": ["\\bidiota\\b"]}`)
	res := New(nil).Scan("Eres un IDIOTA", snap, nil)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "IDIOTA", m.Text)
	assert.Equal(t, 8, m.Start)
	assert.Equal(t, 14, m.End)
	assert.Equal(t, detector.Insult, m.Category)
	assert.Equal(t, `\bidiota\b`, m.Pattern)
}

func TestScanReportsCharacterOffsets(t *testing.T) {
	snap := snapshot(t, `{"insult": ["idiota"]}`)
	for _, engine := range []Engine{RE2{}, Regexp2{}} {
		t.Run(engine.Name(), func(t *testing.T) {
			text := "¿Qué? Ñoño idiota"
			res := New(engine).Scan(text, snap, nil)

			require.Len(t, res.Matches, 1)
			m := res.Matches[0]
			assert.Equal(t, 11, m.Start)
			assert.Equal(t, 17, m.End)
			assert.Equal(t, "idiota", string([]rune(text)[m.Start:m.End]))
		})
	}
}

func TestScanOrderAndDeduplication(t *testing.T) {
	snap := snapshot(t, `{
		"threat": ["\\bmatar\\b"],
		"insult": ["\\bidiota\\b", "idiota"],
		"hate": ["matar"]
	}`)
	obs := &recordingObserver{}
	res := New(nil).Scan("idiota, te voy a matar, idiota", snap, obs)

	require.Len(t, res.Matches, 3)
	assert.Equal(t, detector.Threat, res.Matches[0].Category, "categories scan in catalog order")
	assert.Equal(t, 17, res.Matches[0].Start)
	assert.Equal(t, 0, res.Matches[1].Start)
	assert.Equal(t, 24, res.Matches[2].Start)

	assert.Equal(t, 3, res.Duplicates)
	assert.Len(t, obs.dups, 3)
	assert.Equal(t, res.Matches, obs.kept)
}

func TestScanSkipsEmptyMatches(t *testing.T) {
	snap := snapshot(t, `{"profanity": ["x*"]}`)
	res := New(nil).Scan("abc xx", snap, nil)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "xx", res.Matches[0].Text)
}

func TestScanSkipsInvalidPatterns(t *testing.T) {
	snap := snapshot(t, `{"insult": ["(unclosed", "\\bidiota\\b"]}`)
	obs := &recordingObserver{}
	res := New(nil).Scan("idiota", snap, obs)

	require.Len(t, res.Matches, 1)
	require.Len(t, res.Errors, 1)

	var compileErr *PatternCompileError
	require.True(t, errors.As(res.Errors[0], &compileErr))
	assert.Equal(t, "(unclosed", compileErr.Pattern)
	assert.Equal(t, detector.Insult, compileErr.Category)
	assert.Len(t, obs.skipped, 1)
}

func TestScanEmptyTextAndCatalog(t *testing.T) {
	res := New(nil).Scan("", snapshot(t, `{"insult": ["idiota"]}`), nil)
	assert.Empty(t, res.Matches)

	res = New(nil).Scan("idiota", catalog.New().Snapshot(), nil)
	assert.Empty(t, res.Matches)
}

type countingEngine struct {
	RE2
	compiles atomic.Int32
}

func (c *countingEngine) Compile(pattern string) (Regexp, error) {
	c.compiles.Add(1)
	return c.RE2.Compile(pattern)
}

func TestCompileCache(t *testing.T) {
	engine := &countingEngine{}
	m := New(engine)
	snap := snapshot(t, `{"insult": ["idiota", "(bad"], "hate": ["idiota"]}`)

	for i := 0; i < 5; i++ {
		m.Scan("idiota", snap, nil)
	}
	assert.Equal(t, int32(2), engine.compiles.Load())
}

func TestRegexp2Lookaround(t *testing.T) {
	snap := snapshot(t, `{"insult": ["tonto(?!s)"]}`)

	res := New(Regexp2{}).Scan("tontos y tonto", snap, nil)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 9, res.Matches[0].Start)

	res = New(RE2{}).Scan("tontos y tonto", snap, nil)
	assert.Empty(t, res.Matches)
	assert.Len(t, res.Errors, 1)
}

func TestRegexp2Timeout(t *testing.T) {
	snap := snapshot(t, `{"harassment": ["(a+)+$"]}`)
	text := strings.Repeat("a", 40) + "!"

	res := New(Regexp2{Timeout: time.Millisecond}).Scan(text, snap, nil)
	require.Len(t, res.Errors, 1)

	var matchErr *PatternMatchError
	assert.True(t, errors.As(res.Errors[0], &matchErr))
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine("", 0)
	require.NoError(t, err)
	assert.Equal(t, EngineRE2, e.Name())

	e, err = NewEngine("REGEXP2", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchTimeout, e.(Regexp2).Timeout)

	_, err = NewEngine("pcre", 0)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	m := New(nil)
	assert.NoError(t, m.Validate(`\bidiota\b`))
	assert.Error(t, m.Validate(`[a-`))
}

func TestWordBoundaryIsUnicodeAware(t *testing.T) {
	snap := snapshot(t, `{"threat": ["\\bmatar(te|los|las)?\\b"], "insult": ["\\bcañón\\b"]}`)
	for _, engine := range []Engine{RE2{}, Regexp2{}} {
		t.Run(engine.Name(), func(t *testing.T) {
			m := New(engine)

			assert.Empty(t, m.Scan("Él matará el tiempo", snap, nil).Matches)
			assert.Empty(t, m.Scan("rematar", snap, nil).Matches)
			assert.Empty(t, m.Scan("cañones", snap, nil).Matches)

			res := m.Scan("Un CAÑÓN, matarte.", snap, nil)
			require.Len(t, res.Matches, 2)
			assert.Equal(t, "matarte", res.Matches[0].Text)
			assert.Equal(t, 10, res.Matches[0].Start)
			assert.Equal(t, "CAÑÓN", res.Matches[1].Text)
			assert.Equal(t, 3, res.Matches[1].Start)
			assert.Equal(t, 8, res.Matches[1].End)
		})
	}
}

func TestRE2InnerBoundaryStillMatches(t *testing.T) {
	snap := snapshot(t, `{"threat": ["\\bte voy a matar\\b"]}`)
	res := New(RE2{}).Scan("¡Te voy a matar!", snap, nil)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1, res.Matches[0].Start)
	assert.Equal(t, 15, res.Matches[0].End)
}
