// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel analyses batches of texts and files concurrently.
package parallel

import (
	"context"
	"runtime"
	"time"

	"toxic-scan/internal/detector"
	"toxic-scan/internal/observability"
)

// MaxWorkers caps the default worker count
const MaxWorkers = 8

// DefaultWorkers returns the CPU count capped at MaxWorkers
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxWorkers)
}

// Input is one batch entry
type Input struct {
	Name string
	Text string
	Path string
}

// ProcessingStats summarises a batch
type ProcessingStats struct {
	TotalInputs     int                       `json:"total_inputs"`
	ProcessedInputs int                       `json:"processed_inputs"`
	FailedInputs    int                       `json:"failed_inputs"`
	ToxicInputs     int                       `json:"toxic_inputs"`
	TotalMatches    int                       `json:"total_matches"`
	ByLevel         map[detector.Severity]int `json:"by_level"`
	TotalDuration   time.Duration             `json:"total_duration_ms"`
	WorkerCount     int                       `json:"worker_count"`
	AvgInputTime    time.Duration             `json:"avg_input_time_ms"`
}

// ProgressCallback is called after each input completes
type ProgressCallback func(completed, total int, name string)

// Processor runs batches through a WorkerPool
type Processor struct {
	workers   int
	analyzer  Analyzer
	extractor Extractor
	observer  *observability.StandardObserver
}

// NewProcessor creates a processor. workers <= 0 selects DefaultWorkers.
func NewProcessor(workers int, analyzer Analyzer, extractor Extractor, observer *observability.StandardObserver) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Processor{
		workers:   workers,
		analyzer:  analyzer,
		extractor: extractor,
		observer:  observer,
	}
}

// Process analyses inputs and returns one result per input in input
// order. Cancelling ctx marks the remaining inputs with ctx's error.
func (p *Processor) Process(ctx context.Context, inputs []Input, progress ProgressCallback) ([]Result, *ProcessingStats) {
	start := time.Now()
	finishTiming := p.observer.StartTiming("parallel_processor", "process_batch", "batch")

	pool := NewWorkerPool(ctx, min(p.workers, max(len(inputs), 1)), p.analyzer, p.extractor, p.observer)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, in := range inputs {
			if !pool.Submit(&Job{Index: i, Name: in.Name, Text: in.Text, Path: in.Path}) {
				return
			}
		}
	}()

	results := make([]Result, len(inputs))
	received := make([]bool, len(inputs))
	completed := 0
	var workTime time.Duration

	for completed < len(inputs) {
		var r *Result
		select {
		case r = <-pool.Results():
		case <-ctx.Done():
		}
		if r == nil {
			break
		}
		results[r.Index] = *r
		received[r.Index] = true
		workTime += r.Duration
		completed++
		if progress != nil {
			progress(completed, len(inputs), r.Name)
		}
	}

	// Drain so the workers can exit
	go func() {
		for range pool.Results() {
		}
	}()
	pool.Wait()

	for i := range results {
		if !received[i] {
			results[i] = Result{Index: i, Name: inputs[i].Name, Error: ctx.Err()}
		}
	}

	stats := &ProcessingStats{
		TotalInputs:   len(inputs),
		ByLevel:       make(map[detector.Severity]int),
		TotalDuration: time.Since(start),
		WorkerCount:   p.workers,
	}
	for _, r := range results {
		if r.Error != nil {
			stats.FailedInputs++
			continue
		}
		stats.ProcessedInputs++
		stats.TotalMatches += len(r.Analysis.DetectedWords)
		stats.ByLevel[r.Analysis.Level]++
		if r.Analysis.IsToxic {
			stats.ToxicInputs++
		}
	}
	stats.AvgInputTime = workTime / time.Duration(max(stats.ProcessedInputs, 1))

	if p.observer.Level() != observability.ObservabilityOff {
		finishTiming(true, map[string]interface{}{
			"total_inputs":     stats.TotalInputs,
			"processed_inputs": stats.ProcessedInputs,
			"total_matches":    stats.TotalMatches,
			"worker_count":     p.workers,
			"duration_ms":      stats.TotalDuration.Milliseconds(),
		})
	}
	return results, stats
}
