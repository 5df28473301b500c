// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"toxic-scan/internal/automaton"
	"toxic-scan/internal/detector"
)

// Summary is the outcome reported when an analysis completes
type Summary struct {
	State      automaton.State     `json:"state"`
	Level      detector.Severity   `json:"level"`
	Types      []detector.Category `json:"types"`
	Matches    int                 `json:"matches"`
	Confidence float64             `json:"confidence"`
}

// Tracer receives the step-by-step progress of one analysis, in order
type Tracer interface {
	Start(text string, initial automaton.State)
	PatternSkipped(err error)
	MatchDuplicate(m detector.Match)
	Transition(step int, m detector.Match, from, to automaton.State)
	Completed(summary Summary)
}

// NopTracer discards every event
type NopTracer struct{}

func (NopTracer) Start(string, automaton.State) {}
func (NopTracer) PatternSkipped(error) {}
func (NopTracer) MatchDuplicate(detector.Match) {}
func (NopTracer) Transition(int, detector.Match, automaton.State, automaton.State) {}
func (NopTracer) Completed(Summary) {}

// EventKind names a recorded trace event
type EventKind string

const (
	EventStart      EventKind = "start"
	EventSkipped    EventKind = "pattern_skipped"
	EventDuplicate  EventKind = "duplicate"
	EventTransition EventKind = "transition"
	EventCompleted  EventKind = "completed"
)

// Event is one recorded trace step
type Event struct {
	Kind    EventKind        `json:"kind" yaml:"kind"`
	Step    int              `json:"step,omitempty" yaml:"step,omitempty"`
	Match   *detector.Match  `json:"match,omitempty" yaml:"match,omitempty"`
	From    *automaton.State `json:"from,omitempty" yaml:"from,omitempty"`
	To      *automaton.State `json:"to,omitempty" yaml:"to,omitempty"`
	Error   string           `json:"error,omitempty" yaml:"error,omitempty"`
	Text    string           `json:"text,omitempty" yaml:"text,omitempty"`
	Summary *Summary         `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Recorder keeps every event in memory. Not safe for concurrent use.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Start(text string, initial automaton.State) {
	r.Events = append(r.Events, Event{Kind: EventStart, Text: text, To: &initial})
}

func (r *Recorder) PatternSkipped(err error) {
	r.Events = append(r.Events, Event{Kind: EventSkipped, Error: err.Error()})
}

func (r *Recorder) MatchDuplicate(m detector.Match) {
	r.Events = append(r.Events, Event{Kind: EventDuplicate, Match: &m})
}

func (r *Recorder) Transition(step int, m detector.Match, from, to automaton.State) {
	r.Events = append(r.Events, Event{Kind: EventTransition, Step: step, Match: &m, From: &from, To: &to})
}

func (r *Recorder) Completed(summary Summary) {
	r.Events = append(r.Events, Event{Kind: EventCompleted, Summary: &summary})
}

// Transitions returns only the transition events
func (r *Recorder) Transitions() []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == EventTransition {
			out = append(out, e)
		}
	}
	return out
}
