// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"toxic-scan/internal/detector"
	"toxic-scan/internal/logging"
)

// Pattern is a custom pattern managed at runtime
type Pattern struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Pattern     string            `json:"pattern"`
	Category    detector.Category `json:"toxicity_type"`
	Level       detector.Severity `json:"toxicity_level"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewPattern is the input to CreatePattern
type NewPattern struct {
	Name        string            `json:"name" binding:"required"`
	Pattern     string            `json:"pattern" binding:"required"`
	Category    detector.Category `json:"toxicity_type" binding:"required"`
	Level       detector.Severity `json:"toxicity_level"`
	Description string            `json:"description"`
}

// PatternUpdate changes the non-nil fields of a pattern
type PatternUpdate struct {
	IsActive    *bool   `json:"is_active"`
	Description *string `json:"description"`
}

type patternRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Pattern     string `db:"pattern"`
	Category    string `db:"category"`
	Level       string `db:"level"`
	Description string `db:"description"`
	IsActive    bool   `db:"is_active"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r patternRow) toPattern() Pattern {
	return Pattern{
		ID:          r.ID,
		Name:        r.Name,
		Pattern:     r.Pattern,
		Category:    detector.Category(r.Category),
		Level:       detector.Severity(r.Level),
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
}

// CreatePattern stores an active custom pattern. Names are unique;
// a clash returns ErrDuplicateName.
func (s *Store) CreatePattern(ctx context.Context, in NewPattern) (*Pattern, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Pattern == "" {
		return nil, fmt.Errorf("pattern name and expression are required")
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", in.Category)
	}
	if in.Level == "" {
		in.Level = detector.Low
	}
	if _, err := detector.ParseSeverity(string(in.Level)); err != nil {
		return nil, err
	}

	now := s.now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO toxic_patterns (name, pattern, category, level, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		in.Name, in.Pattern, string(in.Category), string(in.Level), in.Description, now, now)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%s: %w", in.Name, ErrDuplicateName)
	}
	if err != nil {
		return nil, fmt.Errorf("insert pattern: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.log.Info("custom pattern created",
		logging.Int64("id", id),
		logging.String("name", in.Name),
		logging.String("category", string(in.Category)))
	return s.GetPattern(ctx, id)
}

// GetPattern loads one pattern by id
func (s *Store) GetPattern(ctx context.Context, id int64) (*Pattern, error) {
	var row patternRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM toxic_patterns WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pattern %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pattern: %w", err)
	}
	p := row.toPattern()
	return &p, nil
}

// ListPatterns returns patterns in creation order
func (s *Store) ListPatterns(ctx context.Context, activeOnly bool) ([]Pattern, error) {
	query := `SELECT * FROM toxic_patterns`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	var rows []patternRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	out := make([]Pattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPattern())
	}
	return out, nil
}

// UpdatePattern applies u to pattern id
func (s *Store) UpdatePattern(ctx context.Context, id int64, u PatternUpdate) (*Pattern, error) {
	p, err := s.GetPattern(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE toxic_patterns SET is_active = ?, description = ?, updated_at = ? WHERE id = ?`,
		boolInt(p.IsActive), p.Description, s.now().UTC().UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("update pattern: %w", err)
	}
	return s.GetPattern(ctx, id)
}

// SetPatternActive enables or disables pattern id
func (s *Store) SetPatternActive(ctx context.Context, id int64, active bool) error {
	_, err := s.UpdatePattern(ctx, id, PatternUpdate{IsActive: &active})
	return err
}

// DeletePattern removes pattern id
func (s *Store) DeletePattern(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM toxic_patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("pattern %d: %w", id, ErrNotFound)
	}
	return nil
}

// ActivePatterns returns the active custom patterns in creation order
func (s *Store) ActivePatterns(ctx context.Context) ([]detector.PatternEntry, error) {
	patterns, err := s.ListPatterns(ctx, true)
	if err != nil {
		return nil, err
	}
	entries := make([]detector.PatternEntry, 0, len(patterns))
	for _, p := range patterns {
		entries = append(entries, detector.PatternEntry{Category: p.Category, Pattern: p.Pattern})
	}
	return entries, nil
}
