// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"toxic-scan/internal/automaton"
	"toxic-scan/internal/detector"
	"toxic-scan/internal/formatters"
	"toxic-scan/internal/formatters/shared"
	"toxic-scan/internal/highlight"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors  map[string]*color.Color
	context *detector.ContextExtractor
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed, color.Bold),
			"orange":  color.New(color.FgHiRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"white":   color.New(color.FgWhite, color.Bold),
		},
		context: detector.NewContextExtractor(detector.DefaultContextRadius),
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and highlighted matches"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(reports []formatters.Report, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}
	if len(reports) == 0 {
		return "No input analysed.", nil
	}

	var builder strings.Builder
	if !options.Verbose {
		f.appendHeaders(&builder, reports, options)
	}

	for _, report := range reports {
		if options.Verbose {
			f.appendDetailedReport(&builder, report, options)
			continue
		}
		f.appendSummaryLine(&builder, report, reports, options)
	}

	if len(reports) > 1 {
		f.appendTotals(&builder, shared.Summarize(reports), options)
	}
	return strings.TrimRight(builder.String(), "\n"), nil
}

func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...any) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) levelColor(level detector.Severity) string {
	switch level {
	case detector.Low:
		return "yellow"
	case detector.Medium:
		return "orange"
	case detector.Extreme:
		return "red"
	default:
		return "green"
	}
}

func (f *Formatter) sourceWidth(reports []formatters.Report) int {
	width := 6
	for _, r := range reports {
		width = max(width, len([]rune(r.Source)))
	}
	return min(width, 40)
}

func (f *Formatter) appendHeaders(builder *strings.Builder, reports []formatters.Report, options formatters.FormatterOptions) {
	width := f.sourceWidth(reports)
	builder.WriteString(f.paint("white", options, "%-*s %-9s %-5s %-6s %-7s %s\n",
		width, "SOURCE", "LEVEL", "STATE", "CONF", "MATCHES", "TYPES"))
	builder.WriteString(f.paint("white", options, "%s\n", strings.Repeat("-", width+45)))
}

func (f *Formatter) appendSummaryLine(builder *strings.Builder, report formatters.Report, all []formatters.Report, options formatters.FormatterOptions) {
	width := f.sourceWidth(all)
	source := report.Source
	if runes := []rune(source); len(runes) > width {
		source = "..." + string(runes[len(runes)-width+3:])
	}

	if report.Error != "" {
		fmt.Fprintf(builder, "%-*s %s\n", width, source, f.paint("red", options, "[ERROR] %s", report.Error))
		return
	}

	res := report.Result
	level := strings.ToUpper(string(res.Level))
	fmt.Fprintf(builder, "%-*s %s %s %s %s %s\n",
		width, source,
		f.paint(f.levelColor(res.Level), options, "[%-7s]", level),
		f.paint("magenta", options, "%-5s", res.State.ID()),
		f.paint("cyan", options, "%-6.2f", res.Confidence),
		fmt.Sprintf("%-7d", len(res.DetectedWords)),
		joinTypes(res.Types))
}

func (f *Formatter) appendDetailedReport(builder *strings.Builder, report formatters.Report, options formatters.FormatterOptions) {
	builder.WriteString(f.paint("white", options, "=== %s ===\n", report.Source))
	if report.Error != "" {
		builder.WriteString(f.paint("red", options, "Error: %s\n\n", report.Error))
		return
	}

	res := report.Result
	fmt.Fprintf(builder, "Level:      %s\n",
		f.paint(f.levelColor(res.Level), options, "%s", strings.ToUpper(string(res.Level))))
	fmt.Fprintf(builder, "State:      %s\n", res.State.ID())
	fmt.Fprintf(builder, "Path:       %s\n", joinPath(res.Path))
	fmt.Fprintf(builder, "Confidence: %.2f\n", res.Confidence)
	fmt.Fprintf(builder, "Types:      %s\n", joinTypes(res.Types))

	if len(res.DetectedWords) > 0 {
		builder.WriteString("Matches:\n")
		for _, m := range res.DetectedWords {
			fmt.Fprintf(builder, "  [%d:%d] %s %s %s\n",
				m.Start, m.End,
				f.paint("cyan", options, "%q", m.Text),
				f.paint("magenta", options, "%s", m.Category),
				m.Pattern)
			fmt.Fprintf(builder, "         %s\n", f.context.Extract(res.OriginalText, m))
		}
	}
	for _, w := range res.Warnings {
		builder.WriteString(f.paint("yellow", options, "Warning: %s\n", w))
	}

	text := res.OriginalText
	if !options.NoColor {
		text = highlight.ANSI(res.OriginalText, res.DetectedWords)
	}
	fmt.Fprintf(builder, "Text:       %s\n\n", text)
}

func (f *Formatter) appendTotals(builder *strings.Builder, s shared.Summary, options formatters.FormatterOptions) {
	builder.WriteString("\n")
	builder.WriteString(f.paint("white", options, "%d analysed, %d toxic, %d errors", s.Total, s.Toxic, s.Errors))
	var parts []string
	for _, level := range detector.Severities {
		if n := s.ByLevel[level]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", level, n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(builder, " (%s)", strings.Join(parts, " "))
	}
	builder.WriteString("\n")
}

func joinTypes(types []detector.Category) string {
	if len(types) == 0 {
		return "-"
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func joinPath(path []automaton.State) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.ID()
	}
	return strings.Join(parts, " -> ")
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
