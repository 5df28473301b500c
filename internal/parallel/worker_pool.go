// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"toxic-scan/internal/core"
	"toxic-scan/internal/extract"
	"toxic-scan/internal/observability"
)

// Analyzer is the part of core.Detector the pool needs
type Analyzer interface {
	ProcessText(text string) core.AnalysisResult
}

// Extractor reads text out of a file
type Extractor interface {
	File(path string) (*extract.Document, error)
}

// WorkerPool analyses jobs on a fixed number of goroutines
type WorkerPool struct {
	workers   int
	jobs      chan *Job
	results   chan *Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	analyzer  Analyzer
	extractor Extractor
	observer  *observability.StandardObserver
}

// Job is one input to analyse. Exactly one of Text or Path is used;
// Path wins when set.
type Job struct {
	Index int
	Name  string
	Text  string
	Path  string
}

// Result is the outcome of one job
type Result struct {
	Index    int
	Name     string
	Analysis core.AnalysisResult
	Document *extract.Document
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool bound to ctx
func NewWorkerPool(ctx context.Context, workers int, analyzer Analyzer, extractor Extractor, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workers:   workers,
		jobs:      make(chan *Job, workers*2),
		results:   make(chan *Result, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		analyzer:  analyzer,
		extractor: extractor,
		observer:  observer,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a job. It returns false when the pool was cancelled.
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Close stops accepting jobs
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Wait blocks until every worker exits, then closes Results
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()
	finishTiming := wp.observer.StartTiming("worker_pool", "process_job", job.Name)

	result := &Result{Index: job.Index, Name: job.Name}
	text := job.Text

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
	} else if job.Path != "" {
		if wp.extractor == nil {
			result.Error = fmt.Errorf("no extractor configured for %s", job.Path)
		} else if doc, err := wp.extractor.File(job.Path); err != nil {
			result.Error = err
		} else {
			result.Document = doc
			text = doc.Text
		}
	}

	if result.Error == nil {
		result.Analysis = wp.analyzer.ProcessText(text)
	}
	result.Duration = time.Since(start)

	if wp.observer.Level() != observability.ObservabilityOff {
		finishTiming(result.Error == nil, map[string]interface{}{
			"worker_id":   workerID,
			"match_count": len(result.Analysis.DetectedWords),
			"level":       string(result.Analysis.Level),
			"duration_ms": result.Duration.Milliseconds(),
		})
	}
	return result
}
