// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import "strings"

// DefaultContextRadius is the number of characters kept on each side of a match
const DefaultContextRadius = 30

// Snippet is the text surrounding one match. Before and After start or
// end with "..." when the text was cut.
type Snippet struct {
	Before string `json:"before" yaml:"before"`
	Match  string `json:"match" yaml:"match"`
	After  string `json:"after" yaml:"after"`
}

// String renders the snippet with the match in brackets
func (s Snippet) String() string {
	if s.Match == "" {
		return ""
	}
	return s.Before + "[" + s.Match + "]" + s.After
}

// ContextExtractor cuts snippets around matches out of the analysed text
type ContextExtractor struct {
	Radius int
}

// NewContextExtractor returns an extractor keeping radius characters on
// each side, DefaultContextRadius when radius is not positive
func NewContextExtractor(radius int) *ContextExtractor {
	if radius <= 0 {
		radius = DefaultContextRadius
	}
	return &ContextExtractor{Radius: radius}
}

var lineFolder = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// Extract returns the characters around m in text. Line breaks are
// folded to spaces. A span outside text yields an empty snippet.
func (ce *ContextExtractor) Extract(text string, m Match) Snippet {
	runes := []rune(text)
	if m.Start < 0 || m.Start >= m.End || m.End > len(runes) {
		return Snippet{}
	}

	from := max(0, m.Start-ce.Radius)
	to := min(len(runes), m.End+ce.Radius)

	snippet := Snippet{
		Before: lineFolder.Replace(string(runes[from:m.Start])),
		Match:  lineFolder.Replace(string(runes[m.Start:m.End])),
		After:  lineFolder.Replace(string(runes[m.End:to])),
	}
	if from > 0 {
		snippet.Before = "..." + snippet.Before
	}
	if to < len(runes) {
		snippet.After += "..."
	}
	return snippet
}
