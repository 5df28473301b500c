// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"toxic-scan/internal/detector"
)

// DayStatistics holds the counters of one calendar day (UTC)
type DayStatistics struct {
	Date            string `db:"date" json:"date"`
	TotalAnalyses   int    `db:"total_analyses" json:"total_analyses"`
	ToxicAnalyses   int    `db:"toxic_analyses" json:"toxic_analyses"`
	SafeAnalyses    int    `db:"safe_analyses" json:"safe_analyses"`
	LowToxicity     int    `db:"low_toxicity" json:"low_toxicity"`
	MediumToxicity  int    `db:"medium_toxicity" json:"medium_toxicity"`
	ExtremeToxicity int    `db:"extreme_toxicity" json:"extreme_toxicity"`
	InsultsCount    int    `db:"insults_count" json:"insults_count"`
	ThreatsCount    int    `db:"threats_count" json:"threats_count"`
	HateCount       int    `db:"hate_count" json:"hate_count"`
	HarassmentCount int    `db:"harassment_count" json:"harassment_count"`
	ProfanityCount  int    `db:"profanity_count" json:"profanity_count"`
	UpdatedAt       int64  `db:"updated_at" json:"-"`
}

// ToxicityRate is the percentage of toxic analyses
func (d DayStatistics) ToxicityRate() float64 {
	return percent(d.ToxicAnalyses, d.TotalAnalyses)
}

// SafetyRate is the percentage of safe analyses
func (d DayStatistics) SafetyRate() float64 {
	return percent(d.SafeAnalyses, d.TotalAnalyses)
}

// TypeCounts returns the number of analyses per detected category
func (d DayStatistics) TypeCounts() map[detector.Category]int {
	return map[detector.Category]int{
		detector.Insult:     d.InsultsCount,
		detector.Threat:     d.ThreatsCount,
		detector.Hate:       d.HateCount,
		detector.Harassment: d.HarassmentCount,
		detector.Profanity:  d.ProfanityCount,
	}
}

// AnalysisPreview is a shortened analysis listed in day reports
type AnalysisPreview struct {
	ID          string              `json:"id"`
	TextPreview string              `json:"text_preview"`
	Level       detector.Severity   `json:"toxicity_level"`
	IsToxic     bool                `json:"is_toxic"`
	Types       []detector.Category `json:"toxicity_types"`
	CreatedAt   string              `json:"created_at"`
	SourceType  string              `json:"source_type"`
}

// DayReport combines the stored counters of a day with a breakdown of
// the analyses still retained for it
type DayReport struct {
	Date           string                    `json:"date"`
	Stats          DayStatistics             `json:"stats"`
	ToxicityRate   float64                   `json:"toxicity_rate"`
	SafetyRate     float64                   `json:"safety_rate"`
	LevelStats     map[detector.Severity]int `json:"level_stats"`
	TypeStats      map[detector.Category]int `json:"type_stats"`
	RecentAnalyses []AnalysisPreview         `json:"recent_analyses"`
	AnalysesCount  int                       `json:"total_analyses_count"`
}

// GeneralStatistics summarises every retained analysis
type GeneralStatistics struct {
	TotalAnalyses            int                           `json:"total_analyses"`
	ToxicAnalyses            int                           `json:"toxic_analyses"`
	SafeAnalyses             int                           `json:"safe_analyses"`
	ToxicityRate             float64                       `json:"toxicity_rate"`
	SafetyRate               float64                       `json:"safety_rate"`
	ToxicityLevelStats       map[detector.Severity]int     `json:"toxicity_level_stats"`
	ToxicityLevelPercentages map[detector.Severity]float64 `json:"toxicity_level_percentages"`
	ToxicityTypeStats        map[detector.Category]int     `json:"toxicity_type_stats"`
	ToxicityTypePercentages  map[detector.Category]float64 `json:"toxicity_type_percentages"`
}

const previewLength = 100

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// DayStatistics returns the counters stored for date (YYYY-MM-DD)
func (s *Store) DayStatistics(ctx context.Context, date string) (*DayStatistics, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	var stats DayStatistics
	err := s.db.GetContext(ctx, &stats, `SELECT * FROM analysis_statistics WHERE date = ?`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("statistics for %s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return &stats, nil
}

// RecentStatistics returns up to days rows, newest first
func (s *Store) RecentStatistics(ctx context.Context, days int) ([]DayStatistics, error) {
	if days <= 0 {
		days = 30
	}
	var out []DayStatistics
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM analysis_statistics ORDER BY date DESC LIMIT ?`, days)
	if err != nil {
		return nil, fmt.Errorf("list statistics: %w", err)
	}
	return out, nil
}

// DayReport builds the detailed report for date. ErrNotFound when no
// counters exist for the day.
func (s *Store) DayReport(ctx context.Context, date string) (*DayReport, error) {
	stats, err := s.DayStatistics(ctx, date)
	if err != nil {
		return nil, err
	}

	var levels []struct {
		Level string `db:"level"`
		Count int    `db:"n"`
	}
	err = s.db.SelectContext(ctx, &levels,
		`SELECT level, COUNT(*) AS n FROM analyses WHERE created_date = ? GROUP BY level`, date)
	if err != nil {
		return nil, fmt.Errorf("count levels: %w", err)
	}

	report := &DayReport{
		Date:         date,
		Stats:        *stats,
		ToxicityRate: stats.ToxicityRate(),
		SafetyRate:   stats.SafetyRate(),
		LevelStats:   make(map[detector.Severity]int),
		TypeStats:    stats.TypeCounts(),
	}
	for _, l := range levels {
		if l.Count > 0 {
			report.LevelStats[detector.Severity(l.Level)] = l.Count
			report.AnalysesCount += l.Count
		}
	}

	recent, _, err := s.ListAnalyses(ctx, ListFilter{Date: date, Limit: 10})
	if err != nil {
		return nil, err
	}
	report.RecentAnalyses = make([]AnalysisPreview, 0, len(recent))
	for _, a := range recent {
		report.RecentAnalyses = append(report.RecentAnalyses, AnalysisPreview{
			ID:          a.ID,
			TextPreview: preview(a.Text),
			Level:       a.Level,
			IsToxic:     a.IsToxic,
			Types:       a.Types,
			CreatedAt:   a.CreatedAt.Format(time.TimeOnly),
			SourceType:  a.SourceType,
		})
	}
	return report, nil
}

// GeneralStatistics aggregates over all retained analyses. Level
// percentages are relative to the total, type percentages to the toxic
// analyses.
func (s *Store) GeneralStatistics(ctx context.Context) (*GeneralStatistics, error) {
	var counts struct {
		Total int `db:"total"`
		Toxic int `db:"toxic"`
	}
	err := s.db.GetContext(ctx, &counts,
		`SELECT COUNT(*) AS total, COALESCE(SUM(is_toxic), 0) AS toxic FROM analyses`)
	if err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	gs := &GeneralStatistics{
		TotalAnalyses:            counts.Total,
		ToxicAnalyses:            counts.Toxic,
		SafeAnalyses:             counts.Total - counts.Toxic,
		ToxicityRate:             percent(counts.Toxic, counts.Total),
		SafetyRate:               percent(counts.Total-counts.Toxic, counts.Total),
		ToxicityLevelStats:       make(map[detector.Severity]int, len(detector.Severities)),
		ToxicityLevelPercentages: make(map[detector.Severity]float64, len(detector.Severities)),
		ToxicityTypeStats:        make(map[detector.Category]int, len(detector.Categories)),
		ToxicityTypePercentages:  make(map[detector.Category]float64, len(detector.Categories)),
	}

	for _, level := range detector.Severities {
		var n int
		if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM analyses WHERE level = ?`, string(level)); err != nil {
			return nil, fmt.Errorf("count level %s: %w", level, err)
		}
		gs.ToxicityLevelStats[level] = n
		gs.ToxicityLevelPercentages[level] = percent(n, counts.Total)
	}

	for _, cat := range detector.Categories {
		var n int
		err := s.db.GetContext(ctx, &n, `
			SELECT COUNT(*) FROM analyses
			WHERE is_toxic = 1
			AND EXISTS (SELECT 1 FROM json_each(analyses.types) WHERE json_each.value = ?)`, string(cat))
		if err != nil {
			return nil, fmt.Errorf("count type %s: %w", cat, err)
		}
		gs.ToxicityTypeStats[cat] = n
		gs.ToxicityTypePercentages[cat] = percent(n, counts.Toxic)
	}
	return gs, nil
}
