// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"toxic-scan/internal/core"
	"toxic-scan/internal/detector"

	"github.com/google/uuid"
)

// Source types recorded with each analysis
const (
	SourceText = "text"
	SourceFile = "file"
)

// Analysis is a persisted analysis result
type Analysis struct {
	ID              string              `json:"id"`
	Text            string              `json:"text"`
	SourceType      string              `json:"source_type"`
	FileName        string              `json:"file_name"`
	FileType        string              `json:"file_type"`
	IsToxic         bool                `json:"is_toxic"`
	Level           detector.Severity   `json:"toxicity_level"`
	State           string              `json:"afd_state"`
	Confidence      float64             `json:"confidence"`
	Types           []detector.Category `json:"toxicity_types"`
	MatchedPatterns []string            `json:"matched_patterns"`
	DetectedWords   []detector.Match    `json:"detected_words"`
	HighlightedText string              `json:"highlighted_text"`
	IPAddress       string              `json:"ip_address,omitempty"`
	UserAgent       string              `json:"user_agent,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// NewAnalysis is the input to SaveAnalysis
type NewAnalysis struct {
	Result     core.AnalysisResult
	SourceType string
	FileName   string
	FileType   string
	IPAddress  string
	UserAgent  string
}

type analysisRow struct {
	ID              string  `db:"id"`
	Text            string  `db:"text"`
	SourceType      string  `db:"source_type"`
	FileName        string  `db:"file_name"`
	FileType        string  `db:"file_type"`
	IsToxic         bool    `db:"is_toxic"`
	Level           string  `db:"level"`
	State           string  `db:"state"`
	Confidence      float64 `db:"confidence"`
	Types           string  `db:"types"`
	MatchedPatterns string  `db:"matched_patterns"`
	DetectedWords   string  `db:"detected_words"`
	HighlightedText string  `db:"highlighted_text"`
	IPAddress       string  `db:"ip_address"`
	UserAgent       string  `db:"user_agent"`
	CreatedDate     string  `db:"created_date"`
	CreatedAt       int64   `db:"created_at"`
}

func (r analysisRow) toAnalysis() (*Analysis, error) {
	a := &Analysis{
		ID:              r.ID,
		Text:            r.Text,
		SourceType:      r.SourceType,
		FileName:        r.FileName,
		FileType:        r.FileType,
		IsToxic:         r.IsToxic,
		Level:           detector.Severity(r.Level),
		State:           r.State,
		Confidence:      r.Confidence,
		HighlightedText: r.HighlightedText,
		IPAddress:       r.IPAddress,
		UserAgent:       r.UserAgent,
		CreatedAt:       fromMillis(r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.Types), &a.Types); err != nil {
		return nil, fmt.Errorf("decode types of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.MatchedPatterns), &a.MatchedPatterns); err != nil {
		return nil, fmt.Errorf("decode patterns of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.DetectedWords), &a.DetectedWords); err != nil {
		return nil, fmt.Errorf("decode words of %s: %w", r.ID, err)
	}
	return a, nil
}

const insertAnalysis = `
INSERT INTO analyses (
	id, text, source_type, file_name, file_type, is_toxic, level, state, confidence,
	types, matched_patterns, detected_words, highlighted_text, ip_address, user_agent,
	created_date, created_at
) VALUES (
	:id, :text, :source_type, :file_name, :file_type, :is_toxic, :level, :state, :confidence,
	:types, :matched_patterns, :detected_words, :highlighted_text, :ip_address, :user_agent,
	:created_date, :created_at
)`

const upsertStatistics = `
INSERT INTO analysis_statistics (
	date, total_analyses, toxic_analyses, safe_analyses, low_toxicity, medium_toxicity, extreme_toxicity,
	insults_count, threats_count, hate_count, harassment_count, profanity_count, updated_at
) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date) DO UPDATE SET
	total_analyses = total_analyses + 1,
	toxic_analyses = toxic_analyses + excluded.toxic_analyses,
	safe_analyses = safe_analyses + excluded.safe_analyses,
	low_toxicity = low_toxicity + excluded.low_toxicity,
	medium_toxicity = medium_toxicity + excluded.medium_toxicity,
	extreme_toxicity = extreme_toxicity + excluded.extreme_toxicity,
	insults_count = insults_count + excluded.insults_count,
	threats_count = threats_count + excluded.threats_count,
	hate_count = hate_count + excluded.hate_count,
	harassment_count = harassment_count + excluded.harassment_count,
	profanity_count = profanity_count + excluded.profanity_count,
	updated_at = excluded.updated_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveAnalysis stores a result and updates the statistics of its day in
// one transaction
func (s *Store) SaveAnalysis(ctx context.Context, in NewAnalysis) (*Analysis, error) {
	now := s.now().UTC()
	res := in.Result
	if in.SourceType == "" {
		in.SourceType = SourceText
	}

	types, err := json.Marshal(res.Types)
	if err != nil {
		return nil, err
	}
	patterns, err := json.Marshal(res.MatchedPatterns)
	if err != nil {
		return nil, err
	}
	words, err := json.Marshal(res.DetectedWords)
	if err != nil {
		return nil, err
	}

	row := analysisRow{
		ID:              uuid.NewString(),
		Text:            res.OriginalText,
		SourceType:      in.SourceType,
		FileName:        in.FileName,
		FileType:        in.FileType,
		IsToxic:         res.IsToxic,
		Level:           string(res.Level),
		State:           res.State.ID(),
		Confidence:      res.Confidence,
		Types:           string(types),
		MatchedPatterns: string(patterns),
		DetectedWords:   string(words),
		HighlightedText: res.HighlightedText,
		IPAddress:       in.IPAddress,
		UserAgent:       in.UserAgent,
		CreatedDate:     now.Format(DateLayout),
		CreatedAt:       now.UnixMilli(),
	}

	typeSeen := make(map[detector.Category]int, len(res.Types))
	for _, t := range res.Types {
		typeSeen[t] = 1
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.NamedExecContext(ctx, insertAnalysis, row); err != nil {
		return nil, fmt.Errorf("insert analysis: %w", err)
	}
	_, err = tx.ExecContext(ctx, upsertStatistics,
		row.CreatedDate,
		boolInt(res.IsToxic), boolInt(!res.IsToxic),
		boolInt(res.Level == detector.Low), boolInt(res.Level == detector.Medium), boolInt(res.Level == detector.Extreme),
		typeSeen[detector.Insult], typeSeen[detector.Threat], typeSeen[detector.Hate],
		typeSeen[detector.Harassment], typeSeen[detector.Profanity],
		now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("update statistics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit analysis: %w", err)
	}

	return row.toAnalysis()
}

// GetAnalysis loads one analysis by id
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return row.toAnalysis()
}

// ListFilter narrows ListAnalyses
type ListFilter struct {
	Level  detector.Severity // empty for any
	Toxic  *bool             // nil for any
	Date   string            // YYYY-MM-DD, empty for any
	Limit  int
	Offset int
}

// ListAnalyses returns matching analyses, newest first, and the total
// number of matches ignoring paging
func (s *Store) ListAnalyses(ctx context.Context, f ListFilter) ([]Analysis, int, error) {
	var where []string
	var args []any
	if f.Level != "" {
		where = append(where, "level = ?")
		args = append(args, string(f.Level))
	}
	if f.Toxic != nil {
		where = append(where, "is_toxic = ?")
		args = append(args, boolInt(*f.Toxic))
	}
	if f.Date != "" {
		where = append(where, "created_date = ?")
		args = append(args, f.Date)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM analyses"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT * FROM analyses" + clause + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	var rows []analysisRow
	if err := s.db.SelectContext(ctx, &rows, query, append(args, limit, max(f.Offset, 0))...); err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}

	out := make([]Analysis, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAnalysis()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, nil
}

// Prune deletes analyses created before cutoff. Daily statistics are kept.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune analyses: %w", err)
	}
	return res.RowsAffected()
}
