// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"toxic-scan/internal/detector"
	"toxic-scan/internal/formatters"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// Format writes one row per input. In verbose mode it writes one row per
// detected word instead, with inputs that have none kept as a single row.
func (f *Formatter) Format(reports []formatters.Report, options formatters.FormatterOptions) (string, error) {
	var headers []string
	if options.Verbose {
		headers = []string{"Source", "Level", "State", "Match", "Start", "End", "Type", "Pattern"}
	} else {
		headers = []string{"Source", "Toxic", "Level", "State", "Confidence", "Types", "Matches", "Error"}
	}

	csvRows := []string{strings.Join(headers, ",")}
	for _, report := range reports {
		if options.Verbose {
			csvRows = append(csvRows, f.matchRows(report)...)
			continue
		}
		csvRows = append(csvRows, f.summaryRow(report))
	}

	return strings.Join(csvRows, "\n"), nil
}

func (f *Formatter) summaryRow(report formatters.Report) string {
	res := report.Result
	if report.Error != "" {
		return strings.Join([]string{
			f.escapeCSVField(report.Source), "", "", "", "", "", "", f.escapeCSVField(report.Error),
		}, ",")
	}

	return strings.Join([]string{
		f.escapeCSVField(report.Source),
		fmt.Sprintf("%t", res.IsToxic),
		string(res.Level),
		res.State.ID(),
		fmt.Sprintf("%.2f", res.Confidence),
		f.escapeCSVField(joinCategories(res.Types)),
		fmt.Sprintf("%d", len(res.DetectedWords)),
		"",
	}, ",")
}

func (f *Formatter) matchRows(report formatters.Report) []string {
	res := report.Result
	if len(res.DetectedWords) == 0 {
		return []string{strings.Join([]string{
			f.escapeCSVField(report.Source), string(res.Level), res.State.ID(), "", "", "", "", "",
		}, ",")}
	}

	rows := make([]string, 0, len(res.DetectedWords))
	for _, m := range res.DetectedWords {
		rows = append(rows, strings.Join([]string{
			f.escapeCSVField(report.Source),
			string(res.Level),
			res.State.ID(),
			f.escapeCSVField(m.Text),
			fmt.Sprintf("%d", m.Start),
			fmt.Sprintf("%d", m.End),
			string(m.Category),
			f.escapeCSVField(m.Pattern),
		}, ","))
	}
	return rows
}

func joinCategories(types []detector.Category) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ";")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	if strings.ContainsAny(field, ",\"\n\r") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}

// sanitizeFormulaInjection neutralises fields a spreadsheet would run as a formula
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
