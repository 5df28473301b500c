// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package automaton implements the severity escalation DFA.
//
// M = (Q, Σ, δ, q0, F) with Q = {q0, q1, q2, q3}, Σ the five toxicity
// categories, q0 the start state and F = Q. q3 is absorbing. The
// automaton is a pure function of its input; callers carry the state.
package automaton

import (
	"fmt"

	"toxic-scan/internal/detector"
)

// State is a DFA state
type State int

const (
	Safe State = iota
	Low
	Medium
	Extreme
)

// Initial is the start state of every run
const Initial = Safe

// States lists every state in order
var States = []State{Safe, Low, Medium, Extreme}

// ID returns the state's short name, q0 to q3
func (s State) ID() string {
	return fmt.Sprintf("q%d", int(s))
}

func (s State) String() string {
	return s.ID()
}

// Level maps a state to its severity
func (s State) Level() detector.Severity {
	switch s {
	case Low:
		return detector.Low
	case Medium:
		return detector.Medium
	case Extreme:
		return detector.Extreme
	default:
		return detector.Safe
	}
}

// Absorbing reports whether no input can leave the state
func (s State) Absorbing() bool {
	return s == Extreme
}

// ParseState accepts q0..q3
func ParseState(id string) (State, error) {
	for _, s := range States {
		if s.ID() == id {
			return s, nil
		}
	}
	return Safe, fmt.Errorf("unknown automaton state %q", id)
}

// MarshalText encodes the state as its ID
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.ID()), nil
}

// UnmarshalText decodes q0..q3
func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// symbol indexes the transition table columns
func symbol(c detector.Category) (int, bool) {
	switch c {
	case detector.Insult:
		return 0, true
	case detector.Profanity:
		return 1, true
	case detector.Harassment:
		return 2, true
	case detector.Threat:
		return 3, true
	case detector.Hate:
		return 4, true
	}
	return 0, false
}

var delta = [4][5]State{
	//        insult   profanity harassment threat   hate
	Safe:    {Low, Low, Medium, Extreme, Extreme},
	Low:     {Low, Low, Medium, Extreme, Extreme},
	Medium:  {Medium, Medium, Medium, Extreme, Extreme},
	Extreme: {Extreme, Extreme, Extreme, Extreme, Extreme},
}

// Transition returns δ(state, category). An unknown category leaves the
// state unchanged.
func Transition(state State, category detector.Category) State {
	col, ok := symbol(category)
	if !ok || state < Safe || state > Extreme {
		return state
	}
	return delta[state][col]
}

// Run replays categories from the initial state and returns the final
// state together with every state visited, starting with q0.
func Run(categories []detector.Category) (State, []State) {
	state := Initial
	path := make([]State, 0, len(categories)+1)
	path = append(path, state)
	for _, c := range categories {
		state = Transition(state, c)
		path = append(path, state)
	}
	return state, path
}

// Edge is one row of the transition function
type Edge struct {
	From     State             `json:"from"`
	Category detector.Category `json:"category"`
	To       State             `json:"to"`
}

// StateInfo describes a state for display
type StateInfo struct {
	ID        State             `json:"id"`
	Level     detector.Severity `json:"level"`
	Initial   bool              `json:"initial"`
	Accepting bool              `json:"accepting"`
	Absorbing bool              `json:"absorbing"`
}

// Description is the full definition of the automaton
type Description struct {
	States      []StateInfo         `json:"states"`
	Alphabet    []detector.Category `json:"alphabet"`
	Transitions []Edge              `json:"transitions"`
}

// Alphabet lists the input symbols in table column order
var Alphabet = []detector.Category{
	detector.Insult, detector.Profanity, detector.Harassment, detector.Threat, detector.Hate,
}

// Describe returns the states and every transition
func Describe() Description {
	d := Description{Alphabet: Alphabet}
	for _, s := range States {
		d.States = append(d.States, StateInfo{
			ID:        s,
			Level:     s.Level(),
			Initial:   s == Initial,
			Accepting: true,
			Absorbing: s.Absorbing(),
		})
		for _, c := range Alphabet {
			d.Transitions = append(d.Transitions, Edge{From: s, Category: c, To: Transition(s, c)})
		}
	}
	return d
}
