// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package highlight

import (
	"strings"
	"testing"

	"toxic-scan/internal/detector"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(start, end int, category detector.Category) detector.Match {
	return detector.Match{Start: start, End: end, Category: category}
}

func TestHTMLNoMatchesReturnsTextUnchanged(t *testing.T) {
	text := `Hola <b>"amigo"</b> & 'todos'`
	assert.Equal(t, text, HTML(text, nil, Options{}))
	assert.Equal(t, "Hola &lt;b&gt;&quot;amigo&quot;&lt;/b&gt; &amp; &#x27;todos&#x27;",
		HTML(text, nil, Options{EscapeUnmatched: true}))
}

func TestHTMLSingleMatch(t *testing.T) {
	text := "Eres un idiota"
	got := HTML(text, []detector.Match{match(8, 14, detector.Insult)}, Options{})

	want := `Eres un <span style="background-color: #ffc107; color: #000; font-weight: bold; padding: 2px 4px; border-radius: 3px;" title="insult">idiota</span>`
	assert.Equal(t, want, got)
}

func TestHTMLEscapesAroundMatches(t *testing.T) {
	text := "<i>te voy a matar</i>"
	got := HTML(text, []detector.Match{match(12, 17, detector.Threat)}, Options{})

	assert.True(t, strings.HasPrefix(got, "&lt;i&gt;te voy a <span"))
	assert.Contains(t, got, `background-color: #dc3545`)
	assert.Contains(t, got, `title="threat">matar</span>`)
	assert.True(t, strings.HasSuffix(got, "&lt;/i&gt;"))
}

func TestColor(t *testing.T) {
	assert.Equal(t, Amber, Color(detector.Insult))
	assert.Equal(t, Amber, Color(detector.Profanity))
	assert.Equal(t, Orange, Color(detector.Harassment))
	assert.Equal(t, Red, Color(detector.Threat))
	assert.Equal(t, Purple, Color(detector.Hate))
	assert.Equal(t, Amber, Color(detector.Category("other")))
}

func TestSegmentsDropOverlapsAndInvalidSpans(t *testing.T) {
	text := "abcdefghij"
	matches := []detector.Match{
		match(5, 8, detector.Hate),
		match(0, 3, detector.Insult),
		match(2, 4, detector.Threat),   // overlaps 0-3
		match(6, 7, detector.Insult),   // inside 5-8
		match(9, 12, detector.Insult),  // past the end
		match(4, 4, detector.Insult),   // empty
		match(-1, 1, detector.Insult),  // negative
		match(8, 10, detector.Profanity),
	}

	segs := Segments(text, matches)
	var joined strings.Builder
	var marked []string
	for _, s := range segs {
		joined.WriteString(s.Text)
		if s.Match != nil {
			marked = append(marked, s.Text)
		}
	}
	assert.Equal(t, text, joined.String())
	assert.Equal(t, []string{"abc", "fgh", "ij"}, marked)
}

func TestSegmentsEqualStartKeepsScanOrder(t *testing.T) {
	matches := []detector.Match{
		match(0, 2, detector.Threat),
		match(0, 4, detector.Insult),
	}
	segs := Segments("abcdef", matches)
	require.NotNil(t, segs[0].Match)
	assert.Equal(t, detector.Threat, segs[0].Match.Category)
	assert.Equal(t, "ab", segs[0].Text)
}

func TestSegmentsUseCharacterOffsets(t *testing.T) {
	text := "¡Qué idiota!"
	segs := Segments(text, []detector.Match{match(5, 11, detector.Insult)})
	require.Len(t, segs, 3)
	assert.Equal(t, "¡Qué ", segs[0].Text)
	assert.Equal(t, "idiota", segs[1].Text)
	assert.Equal(t, "!", segs[2].Text)
}

func TestHTMLOnlyInvalidMatchesEscapesText(t *testing.T) {
	got := HTML("a<b", []detector.Match{match(5, 9, detector.Insult)}, Options{})
	assert.Equal(t, "a&lt;b", got)
}

func TestANSI(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })

	color.NoColor = true
	text := "Eres un idiota"
	assert.Equal(t, text, ANSI(text, []detector.Match{match(8, 14, detector.Insult)}))

	color.NoColor = false
	got := ANSI(text, []detector.Match{match(8, 14, detector.Insult)})
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, "idiota")
	assert.True(t, strings.HasPrefix(got, "Eres un "))
}
