// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"toxic-scan/internal/automaton"
	"toxic-scan/internal/core"
	"toxic-scan/internal/detector"
	"toxic-scan/internal/extract"
	"toxic-scan/internal/formatters"
	"toxic-scan/internal/logging"
	"toxic-scan/internal/store"
	"toxic-scan/internal/version"

	"github.com/gin-gonic/gin"
)

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AnalyzeResponse is returned by the analyze endpoints
type AnalyzeResponse struct {
	Success              bool                `json:"success"`
	AnalysisID           string              `json:"analysis_id,omitempty"`
	IsToxic              bool                `json:"is_toxic"`
	ToxicityLevel        detector.Severity   `json:"toxicity_level"`
	AFDState             automaton.State     `json:"afd_state"`
	Path                 []automaton.State   `json:"path"`
	SourceType           string              `json:"source_type"`
	FileName             string              `json:"file_name"`
	FileType             string              `json:"file_type"`
	ToxicityTypes        []detector.Category `json:"toxicity_types"`
	Confidence           float64             `json:"confidence"`
	MatchedPatternsCount int                 `json:"matched_patterns_count"`
	DetectedWordsCount   int                 `json:"detected_words_count"`
	DetectedWords        []detector.Match    `json:"detected_words"`
	HighlightedText      string              `json:"highlighted_text"`
	Warnings             []string            `json:"warnings,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	info := version.Full()
	stats := s.opts.Detector.Statistics()

	storeStatus := "disabled"
	if s.opts.Store != nil {
		storeStatus = "ok"
		if err := s.opts.Store.Ping(c.Request.Context()); err != nil {
			storeStatus = "error"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"service":        "toxic-scan",
		"version":        info["version"],
		"engine":         s.opts.Detector.Engine(),
		"total_patterns": stats.TotalPatterns,
		"store":          storeStatus,
		"build_info": gin.H{
			"version":    info["version"],
			"commit":     info["commit"],
			"build_date": info["buildDate"],
			"go_version": info["goVersion"],
			"platform":   info["platform"],
		},
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		errorJSON(c, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if n := utf8.RuneCountInString(text); n > s.opts.MaxTextLength {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("text is too long (%d characters, maximum %d)", n, s.opts.MaxTextLength))
		return
	}

	result := s.opts.Detector.ProcessText(text)
	s.respond(c, result, store.NewAnalysis{Result: result, SourceType: store.SourceText}, "request")
}

func (s *Server) handleAnalyzeFile(c *gin.Context) {
	header, err := c.FormFile("document")
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "multipart field 'document' is required")
		return
	}
	if header.Size > s.opts.Extractor.MaxSize {
		errorJSON(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is too large (maximum %d bytes)", s.opts.Extractor.MaxSize))
		return
	}

	f, err := header.Open()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "could not read upload")
		return
	}
	defer f.Close()

	doc, err := s.opts.Extractor.Reader(header.Filename, f)
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, extract.ErrTooLarge):
		errorJSON(c, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, extract.ErrNoText):
		errorJSON(c, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		_ = c.Error(err)
		errorJSON(c, http.StatusUnprocessableEntity, "could not extract text from the document")
		return
	}

	result := s.opts.Detector.ProcessText(doc.Text)
	result.Warnings = append(result.Warnings, doc.Warnings...)
	s.respond(c, result, store.NewAnalysis{
		Result:     result,
		SourceType: store.SourceFile,
		FileName:   doc.Name,
		FileType:   doc.Type,
	}, doc.Name)
}

// respond checks ?format=, persists the analysis when a store is
// configured, then writes it as JSON or as a formatter download
func (s *Server) respond(c *gin.Context, result core.AnalysisResult, in store.NewAnalysis, source string) {
	resp := AnalyzeResponse{
		Success:              true,
		IsToxic:              result.IsToxic,
		ToxicityLevel:        result.Level,
		AFDState:             result.State,
		Path:                 result.Path,
		SourceType:           in.SourceType,
		FileName:             in.FileName,
		FileType:             in.FileType,
		ToxicityTypes:        result.Types,
		Confidence:           result.Confidence,
		MatchedPatternsCount: len(result.MatchedPatterns),
		DetectedWordsCount:   len(result.DetectedWords),
		DetectedWords:        result.DetectedWords,
		HighlightedText:      result.HighlightedText,
		Warnings:             result.Warnings,
		CreatedAt:            time.Now().UTC(),
	}

	format := c.Query("format")
	if format != "" && format != "json" {
		if _, ok := formatters.Get(format); !ok {
			errorJSON(c, http.StatusBadRequest, fmt.Sprintf("unsupported format '%s'. Available formats: %s",
				format, strings.Join(formatters.List(), ", ")))
			return
		}
	}

	if s.opts.Store != nil {
		in.IPAddress = c.ClientIP()
		in.UserAgent = c.Request.UserAgent()
		saved, err := s.opts.Store.SaveAnalysis(c.Request.Context(), in)
		if err != nil {
			_ = c.Error(err)
			errorJSON(c, http.StatusInternalServerError, "internal server error")
			return
		}
		resp.AnalysisID = saved.ID
		resp.CreatedAt = saved.CreatedAt
	}

	if format != "" && format != "json" {
		content, mime, filename, err := formatters.ExportForWeb(format,
			[]formatters.Report{{Source: source, Result: result}},
			formatters.FormatterOptions{NoColor: true, Verbose: true})
		if err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, mime, []byte(content))
		return
	}

	if resp.ToxicityTypes == nil {
		resp.ToxicityTypes = []detector.Category{}
	}
	if resp.DetectedWords == nil {
		resp.DetectedWords = []detector.Match{}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAutomaton(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"automaton":  automaton.Describe(),
		"statistics": s.opts.Detector.Statistics(),
	})
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	filter := store.ListFilter{
		Date:   c.Query("date"),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	filter.Limit = min(max(filter.Limit, 1), 100)

	if level := c.Query("level"); level != "" {
		parsed, err := detector.ParseSeverity(level)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		filter.Level = parsed
	}
	if toxic := c.Query("toxic"); toxic != "" {
		b, err := strconv.ParseBool(toxic)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "toxic must be true or false")
			return
		}
		filter.Toxic = &b
	}

	analyses, total, err := s.opts.Store.ListAnalyses(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analyses": analyses,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	a, err := s.opts.Store.GetAnalysis(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	general, err := s.opts.Store.GeneralStatistics(ctx)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	recent, err := s.opts.Store.RecentStatistics(ctx, queryInt(c, "days", 30))
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if recent == nil {
		recent = []store.DayStatistics{}
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":        general,
		"recent_stats": recent,
	})
}

func (s *Server) handleDayStatistics(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(store.DateLayout, date); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}

	report, err := s.opts.Store.DayReport(c.Request.Context(), date)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "no statistics available for this date")
		return
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func (s *Server) handleListPatterns(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	patterns, err := s.opts.Store.ListPatterns(c.Request.Context(), activeOnly)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "total": len(patterns)})
}

func (s *Server) handleCreatePattern(c *gin.Context) {
	var req store.NewPattern
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Category.Valid() {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("unknown toxicity_type %q", req.Category))
		return
	}
	if req.Level != "" {
		if _, err := detector.ParseSeverity(string(req.Level)); err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.opts.Detector.ValidatePattern(req.Pattern); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.opts.Store.CreatePattern(c.Request.Context(), req)
	if errors.Is(err, store.ErrDuplicateName) {
		errorJSON(c, http.StatusConflict, "a pattern with this name already exists")
		return
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}

	s.reload(c)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleUpdatePattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	var req store.PatternUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.opts.Store.UpdatePattern(c.Request.Context(), id, req)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "pattern not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}

	s.reload(c)
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeletePattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	err := s.opts.Store.DeletePattern(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "pattern not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}

	s.reload(c)
	c.Status(http.StatusNoContent)
}

// reload rebuilds the catalog. A failed reload keeps the old catalog;
// the stored change still stands and the next reload picks it up.
func (s *Server) reload(c *gin.Context) {
	if s.opts.Reloader == nil {
		return
	}
	if err := s.opts.Reloader.Reload(c.Request.Context()); err != nil {
		s.log.Error("catalog reload after pattern change failed",
			logging.String("request_id", c.GetString("request_id")),
			logging.Error(err))
	}
}

func patternID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorJSON(c, http.StatusBadRequest, "invalid pattern id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
