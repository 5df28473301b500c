// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package automaton

import (
	"encoding/json"
	"testing"

	"toxic-scan/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	want := map[State]map[detector.Category]State{
		Safe: {
			detector.Insult: Low, detector.Profanity: Low, detector.Harassment: Medium,
			detector.Threat: Extreme, detector.Hate: Extreme,
		},
		Low: {
			detector.Insult: Low, detector.Profanity: Low, detector.Harassment: Medium,
			detector.Threat: Extreme, detector.Hate: Extreme,
		},
		Medium: {
			detector.Insult: Medium, detector.Profanity: Medium, detector.Harassment: Medium,
			detector.Threat: Extreme, detector.Hate: Extreme,
		},
		Extreme: {
			detector.Insult: Extreme, detector.Profanity: Extreme, detector.Harassment: Extreme,
			detector.Threat: Extreme, detector.Hate: Extreme,
		},
	}
	for from, row := range want {
		for category, to := range row {
			assert.Equal(t, to, Transition(from, category), "δ(%s, %s)", from, category)
		}
	}
}

func TestTransitionNeverLowersSeverity(t *testing.T) {
	for _, s := range States {
		for _, c := range Alphabet {
			assert.GreaterOrEqual(t, Transition(s, c).Level().Rank(), s.Level().Rank())
		}
	}
}

func TestUnknownCategoryKeepsState(t *testing.T) {
	assert.Equal(t, Medium, Transition(Medium, detector.Category("spam")))
}

func TestRun(t *testing.T) {
	final, path := Run([]detector.Category{detector.Insult, detector.Harassment})
	assert.Equal(t, Medium, final)
	assert.Equal(t, []State{Safe, Low, Medium}, path)

	final, path = Run(nil)
	assert.Equal(t, Safe, final)
	assert.Equal(t, []State{Safe}, path)
}

func TestRunExtremeIsAbsorbing(t *testing.T) {
	final, _ := Run([]detector.Category{detector.Hate, detector.Insult, detector.Profanity, detector.Harassment})
	assert.Equal(t, Extreme, final)
}

func TestRunIsOrderSensitiveOnlyThroughTable(t *testing.T) {
	a, _ := Run([]detector.Category{detector.Harassment, detector.Insult})
	b, _ := Run([]detector.Category{detector.Insult, detector.Harassment})
	assert.Equal(t, Medium, a)
	assert.Equal(t, Medium, b)
}

func TestLevels(t *testing.T) {
	assert.Equal(t, detector.Safe, Safe.Level())
	assert.Equal(t, detector.Low, Low.Level())
	assert.Equal(t, detector.Medium, Medium.Level())
	assert.Equal(t, detector.Extreme, Extreme.Level())
}

func TestStateTextEncoding(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": Extreme})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"q3"}`, string(data))

	var decoded map[string]State
	require.NoError(t, json.Unmarshal([]byte(`{"state":"q2"}`), &decoded))
	assert.Equal(t, Medium, decoded["state"])

	_, err = ParseState("q9")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	d := Describe()
	require.Len(t, d.States, 4)
	assert.True(t, d.States[0].Initial)
	assert.True(t, d.States[3].Absorbing)
	assert.Len(t, d.Transitions, 20)
	for _, s := range d.States {
		assert.True(t, s.Accepting)
	}
}
