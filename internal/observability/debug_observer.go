// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"

	"toxic-scan/internal/automaton"
	"toxic-scan/internal/detector"
)

// DebugObserver provides detailed step-by-step debugging. It also
// implements Tracer, printing each automaton transition as it happens.
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
		indent:           0,
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%s   → %s: %s\n", indentStr, component, detail)
}

func levelName(s automaton.State) string {
	return strings.ToUpper(s.Level().String())
}

// Start prints the input text and the initial state
func (d *DebugObserver) Start(text string, initial automaton.State) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%s📝 input: %q\n", indentStr, text)
	fmt.Fprintf(d.writer, "%s🔄 automaton: start in %s (%s)\n", indentStr, initial, levelName(initial))
	d.indent++
}

// PatternSkipped reports a pattern that could not be used
func (d *DebugObserver) PatternSkipped(err error) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%s⚠️  %v\n", indentStr, err)
}

// MatchDuplicate reports a span already matched by an earlier pattern
func (d *DebugObserver) MatchDuplicate(m detector.Match) {
	d.LogDetail("matcher", fmt.Sprintf("%q at %d-%d already detected, ignored (%s)", m.Text, m.Start, m.End, m.Category))
}

// Transition prints one step of the walk
func (d *DebugObserver) Transition(step int, m detector.Match, from, to automaton.State) {
	indentStr := strings.Repeat("  ", d.indent)
	fmt.Fprintf(d.writer, "%sStep %d: detected %q at %d-%d (%s)\n",
		indentStr, step, m.Text, m.Start, m.End, strings.ToUpper(m.Category.String()))
	fmt.Fprintf(d.writer, "%s   → pattern: %s\n", indentStr, m.Pattern)
	fmt.Fprintf(d.writer, "%s   → δ(%s, %s) = %s (%s)\n", indentStr, from, m.Category, to, levelName(to))
}

// Completed prints the final classification
func (d *DebugObserver) Completed(summary Summary) {
	if d.indent > 0 {
		d.indent--
	}
	indentStr := strings.Repeat("  ", d.indent)
	types := make([]string, len(summary.Types))
	for i, t := range summary.Types {
		types[i] = t.String()
	}
	if len(types) == 0 {
		types = append(types, "none")
	}
	fmt.Fprintf(d.writer, "%s✅ automaton: final state %s (%s), %d match(es), confidence %.1f%%, types: %s\n",
		indentStr, summary.State, strings.ToUpper(summary.Level.String()),
		summary.Matches, summary.Confidence*100, strings.Join(types, ", "))
}
