// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"strings"
)

// Category identifies the kind of toxicity a pattern detects
type Category string

const (
	Insult     Category = "insult"
	Threat     Category = "threat"
	Hate       Category = "hate"
	Harassment Category = "harassment"
	Profanity  Category = "profanity"
)

// Categories lists every known category in canonical order
var Categories = []Category{Insult, Threat, Hate, Harassment, Profanity}

// ParseCategory converts a catalog key into a Category
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", name)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case Insult, Threat, Hate, Harassment, Profanity:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Severity is the classification outcome, ordered safe < low < medium < extreme
type Severity string

const (
	Safe    Severity = "safe"
	Low     Severity = "low"
	Medium  Severity = "medium"
	Extreme Severity = "extreme"
)

// Severities lists every level from least to most severe
var Severities = []Severity{Safe, Low, Medium, Extreme}

// Rank returns the position of the level in the severity order
func (s Severity) Rank() int {
	switch s {
	case Low:
		return 1
	case Medium:
		return 2
	case Extreme:
		return 3
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity converts a level name into a Severity
func ParseSeverity(name string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case Safe, Low, Medium, Extreme:
		return s, nil
	}
	return "", fmt.Errorf("unknown toxicity level %q", name)
}

// Match represents one kept pattern occurrence in the analysed text.
// Start and End are character offsets, End exclusive.
type Match struct {
	Text     string   `json:"text" yaml:"text"`
	Start    int      `json:"start" yaml:"start"`
	End      int      `json:"end" yaml:"end"`
	Pattern  string   `json:"pattern" yaml:"pattern"`
	Category Category `json:"toxicity_type" yaml:"toxicity_type"`
}

// Len returns the match length in characters
func (m Match) Len() int {
	return m.End - m.Start
}

// Valid reports whether the span lies inside a text of textLen characters
func (m Match) Valid(textLen int) bool {
	return m.Start >= 0 && m.End <= textLen && m.Start < m.End
}

// PatternEntry is a single pattern bound to one category
type PatternEntry struct {
	Category Category `json:"category" yaml:"category"`
	Pattern  string   `json:"pattern" yaml:"pattern"`
}
