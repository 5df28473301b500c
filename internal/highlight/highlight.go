// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package highlight renders analysed text with the matched spans marked.
package highlight

import (
	"fmt"
	"sort"
	"strings"

	"toxic-scan/internal/detector"

	"github.com/fatih/color"
)

// Category colours used by the HTML renderer
const (
	Amber  = "#ffc107"
	Orange = "#fd7e14"
	Red    = "#dc3545"
	Purple = "#6f42c1"
)

// Color returns the background colour for a category, amber when unknown
func Color(c detector.Category) string {
	switch c {
	case detector.Harassment:
		return Orange
	case detector.Threat:
		return Red
	case detector.Hate:
		return Purple
	default:
		return Amber
	}
}

// Segment is a run of text, marked when Match is non-nil
type Segment struct {
	Text  string
	Match *detector.Match
}

// Segments splits text into plain and marked runs. Matches are ordered
// by start (stable, so equal starts keep scan order); spans outside the
// text, empty spans and spans overlapping the previously marked one are
// dropped. Concatenating every Segment.Text yields text.
func Segments(text string, matches []detector.Match) []Segment {
	runes := []rune(text)
	sorted := make([]detector.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var segments []Segment
	lastEnd := 0
	for i := range sorted {
		m := sorted[i]
		if !m.Valid(len(runes)) || m.Start < lastEnd {
			continue
		}
		if m.Start > lastEnd {
			segments = append(segments, Segment{Text: string(runes[lastEnd:m.Start])})
		}
		segments = append(segments, Segment{Text: string(runes[m.Start:m.End]), Match: &sorted[i]})
		lastEnd = m.End
	}
	if lastEnd < len(runes) {
		segments = append(segments, Segment{Text: string(runes[lastEnd:])})
	}
	return segments
}

// Options controls HTML rendering
type Options struct {
	// EscapeUnmatched escapes text with no matches instead of returning it as is
	EscapeUnmatched bool
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML escapes & < > " and '
func EscapeHTML(s string) string {
	return escaper.Replace(s)
}

const spanFormat = `<span style="background-color: %s; color: #000; font-weight: bold; padding: 2px 4px; border-radius: 3px;" title="%s">%s</span>`

// HTML renders text as an HTML fragment with every marked segment
// wrapped in a coloured span. Text without matches is returned unchanged
// unless opts.EscapeUnmatched is set.
func HTML(text string, matches []detector.Match, opts Options) string {
	if len(matches) == 0 {
		if opts.EscapeUnmatched {
			return EscapeHTML(text)
		}
		return text
	}

	var b strings.Builder
	for _, seg := range Segments(text, matches) {
		if seg.Match == nil {
			b.WriteString(EscapeHTML(seg.Text))
			continue
		}
		fmt.Fprintf(&b, spanFormat,
			Color(seg.Match.Category),
			EscapeHTML(string(seg.Match.Category)),
			EscapeHTML(seg.Text))
	}
	return b.String()
}

var ansiColors = map[string]*color.Color{
	Amber:  color.New(color.BgYellow, color.FgBlack, color.Bold),
	Orange: color.New(color.BgHiRed, color.FgBlack, color.Bold),
	Red:    color.New(color.BgRed, color.FgWhite, color.Bold),
	Purple: color.New(color.BgMagenta, color.FgWhite, color.Bold),
}

// ANSI renders text for a terminal, colouring each marked segment with
// its category background. Honors color.NoColor.
func ANSI(text string, matches []detector.Match) string {
	var b strings.Builder
	for _, seg := range Segments(text, matches) {
		if seg.Match == nil {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(ansiColors[Color(seg.Match.Category)].Sprint(seg.Text))
	}
	return b.String()
}
