// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"toxic-scan/internal/automaton"
	"toxic-scan/internal/core"
	"toxic-scan/internal/detector"
	"toxic-scan/internal/formatters"
)

// JSONResponse represents the top-level response structure for JSON/YAML output
type JSONResponse struct {
	Results []JSONReport `json:"results" yaml:"results"`
	Summary Summary      `json:"summary" yaml:"summary"`
}

// JSONReport is one analysed input in JSON/YAML format
type JSONReport struct {
	Source     string `json:"source" yaml:"source"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`

	core.AnalysisResult `yaml:",inline"`
}

// Summary aggregates a batch
type Summary struct {
	Total   int                       `json:"total" yaml:"total"`
	Toxic   int                       `json:"toxic" yaml:"toxic"`
	Errors  int                       `json:"errors" yaml:"errors"`
	ByLevel map[detector.Severity]int `json:"by_level" yaml:"by_level"`
}

// Summarize counts reports by outcome
func Summarize(reports []formatters.Report) Summary {
	s := Summary{Total: len(reports), ByLevel: make(map[detector.Severity]int)}
	for _, r := range reports {
		if r.Error != "" {
			s.Errors++
			continue
		}
		s.ByLevel[r.Result.Level]++
		if r.Result.IsToxic {
			s.Toxic++
		}
	}
	return s
}

// ConvertReports converts reports to the JSON/YAML structure. Empty
// lists are kept as [] rather than null.
func ConvertReports(reports []formatters.Report) JSONResponse {
	out := make([]JSONReport, 0, len(reports))
	for _, r := range reports {
		res := r.Result
		if res.Path == nil {
			res.Path = []automaton.State{}
		}
		if res.Types == nil {
			res.Types = []detector.Category{}
		}
		if res.MatchedPatterns == nil {
			res.MatchedPatterns = []string{}
		}
		if res.DetectedWords == nil {
			res.DetectedWords = []detector.Match{}
		}
		out = append(out, JSONReport{
			Source:         r.Source,
			Error:          r.Error,
			DurationMs:     r.Duration.Milliseconds(),
			AnalysisResult: res,
		})
	}
	return JSONResponse{Results: out, Summary: Summarize(reports)}
}
