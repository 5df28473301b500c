// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package html

import (
	"fmt"
	"html/template"
	"strings"

	"toxic-scan/internal/detector"
	"toxic-scan/internal/formatters"
	"toxic-scan/internal/formatters/shared"
	"toxic-scan/internal/highlight"
)

// Formatter renders a standalone HTML page with highlighted texts
type Formatter struct {
	page *template.Template
}

// NewFormatter creates a new HTML formatter
func NewFormatter() *Formatter {
	return &Formatter{page: template.Must(template.New("report").Funcs(template.FuncMap{
		"upper": func(s detector.Severity) string { return strings.ToUpper(string(s)) },
		"color": highlight.Color,
	}).Parse(pageTemplate))}
}

func (f *Formatter) Name() string {
	return "html"
}

func (f *Formatter) Description() string {
	return "Standalone HTML page with every match highlighted"
}

func (f *Formatter) FileExtension() string {
	return ".html"
}

type entry struct {
	formatters.Report
	Highlighted template.HTML
}

func (f *Formatter) Format(reports []formatters.Report, _ formatters.FormatterOptions) (string, error) {
	entries := make([]entry, 0, len(reports))
	for _, r := range reports {
		e := entry{Report: r}
		if r.Error == "" {
			// The highlighter escapes everything outside its spans
			e.Highlighted = template.HTML(highlight.HTML(r.Result.OriginalText, r.Result.DetectedWords,
				highlight.Options{EscapeUnmatched: true}))
		}
		entries = append(entries, e)
	}

	var b strings.Builder
	err := f.page.Execute(&b, map[string]any{
		"Entries": entries,
		"Summary": shared.Summarize(reports),
	})
	if err != nil {
		return "", fmt.Errorf("error formatting HTML: %w", err)
	}
	return b.String(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>toxic-scan report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.report { border: 1px solid #ddd; border-radius: 4px; padding: 1em; margin-bottom: 1em; }
.level { font-weight: bold; }
.safe { color: #198754; } .low { color: #b58100; } .medium { color: #fd7e14; } .extreme { color: #dc3545; }
.text { white-space: pre-wrap; line-height: 1.8; }
</style>
</head>
<body>
<h1>toxic-scan report</h1>
<p>{{.Summary.Total}} analysed, {{.Summary.Toxic}} toxic, {{.Summary.Errors}} errors</p>
{{range .Entries}}<div class="report">
<h2>{{.Source}}</h2>
{{if .Error}}<p class="extreme">Error: {{.Error}}</p>
{{else}}<p class="level {{.Result.Level}}">{{upper .Result.Level}} ({{.Result.State.ID}}), confidence {{printf "%.2f" .Result.Confidence}}</p>
{{if .Result.Types}}<p>Types: {{range $i, $t := .Result.Types}}{{if $i}}, {{end}}<span style="color: {{color $t}}">{{$t}}</span>{{end}}</p>
{{end}}<div class="text">{{.Highlighted}}</div>
{{range .Result.Warnings}}<p class="medium">Warning: {{.}}</p>
{{end}}{{end}}</div>
{{end}}</body>
</html>
`

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
