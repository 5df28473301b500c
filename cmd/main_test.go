// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points the CLI at the repository catalog and a temporary
// store, away from any config file on the machine
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TOXIC_CONFIG_DIR", "")
	t.Setenv("TOXIC_CATALOG_PATH", filepath.Join("..", "data", "toxic_patterns.json"))
	t.Setenv("TOXIC_STORE_PATH", filepath.Join(dir, "toxic-scan.db"))
	t.Setenv("TOXIC_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestAnalyzeTextJSON(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "", "analyze", "--format", "json", "--text", "Eres un idiota")
	require.Equal(t, 0, code, stderr)

	var resp struct {
		Results []map[string]any `json:"results"`
		Summary map[string]any   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "text", resp.Results[0]["source"])
	assert.Equal(t, "low", resp.Results[0]["level"])
	assert.Equal(t, "q1", resp.Results[0]["state"])
	assert.InDelta(t, 0.15, resp.Results[0]["confidence"], 1e-9)
	assert.EqualValues(t, 1, resp.Summary["toxic"])
}

func TestAnalyzeFailOnToxic(t *testing.T) {
	setupEnv(t)
	code, _, _ := run(t, "", "analyze", "--fail-on-toxic", "--no-color", "--text", "Te voy a matar")
	assert.Equal(t, 2, code)

	code, _, _ = run(t, "", "analyze", "--fail-on-toxic", "--no-color", "--text", "Hola, ¿cómo estás?")
	assert.Equal(t, 0, code)
}

func TestAnalyzeStdin(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "Te voy a matar\n", "analyze", "--format", "csv")
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "stdin,true,extreme,q3,"), lines[1])
}

func TestAnalyzeRejectsMissingInput(t *testing.T) {
	setupEnv(t)
	code, _, stderr := run(t, "  ", "analyze")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "stdin was empty")

	code, _, stderr = run(t, "", "analyze", "--text", "   ")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "text cannot be empty")
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	setupEnv(t)
	code, _, stderr := run(t, "", "analyze", "--format", "sarif", "--text", "hola")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported format")
}

func TestAnalyzeFilesKeepsOrderAndReportsErrors(t *testing.T) {
	dir := setupEnv(t)
	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.html")
	require.NoError(t, os.WriteFile(first, []byte("Hola a todos"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("<p>Eres un idiota y te voy a acosar</p>"), 0o600))
	missing := filepath.Join(dir, "missing.txt")

	code, out, _ := run(t, "", "analyze", "--format", "json", "--workers", "2", first, second, missing)
	assert.Equal(t, 1, code)

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, first, resp.Results[0]["source"])
	assert.Equal(t, "safe", resp.Results[0]["level"])
	assert.Equal(t, "medium", resp.Results[1]["level"])
	assert.Equal(t, []any{"q0", "q1", "q2"}, resp.Results[1]["path"])
	assert.NotEmpty(t, resp.Results[2]["error"])
}

func TestAnalyzeOutputFile(t *testing.T) {
	dir := setupEnv(t)
	target := filepath.Join(dir, "report.html")
	code, _, stderr := run(t, "", "analyze", "--format", "html", "--output", target, "--text", "Eres un idiota")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Results written to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `title="insult">idiota</span>`)
}

func TestSaveThenStats(t *testing.T) {
	setupEnv(t)
	code, _, _ := run(t, "", "stats")
	assert.Equal(t, 1, code)

	for _, text := range []string{"Eres un idiota", "Te voy a matar", "Hola"} {
		code, _, stderr := run(t, "", "analyze", "--save", "--no-color", "--text", text)
		require.Equal(t, 0, code, stderr)
	}

	code, out, stderr := run(t, "", "stats", "--format", "json")
	require.Equal(t, 0, code, stderr)
	var resp struct {
		Stats map[string]any   `json:"stats"`
		Days  []map[string]any `json:"recent_stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.EqualValues(t, 3, resp.Stats["total_analyses"])
	assert.EqualValues(t, 2, resp.Stats["toxic_analyses"])
	require.Len(t, resp.Days, 1)
	assert.EqualValues(t, 1, resp.Days[0]["extreme_toxicity"])

	code, out, _ = run(t, "", "stats", "--no-color")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Analyses: 3 (toxic 2, safe 1)")

	code, _, stderr = run(t, "", "stats", "--date", "19-10-2026")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "YYYY-MM-DD")
}

func TestCustomPatternLifecycle(t *testing.T) {
	setupEnv(t)
	level := func() string {
		t.Helper()
		code, out, stderr := run(t, "", "analyze", "--format", "json", "--text", "eres un zoquete")
		require.Equal(t, 0, code, stderr)
		var resp struct {
			Results []map[string]any `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Results[0]["level"].(string)
	}
	assert.Equal(t, "safe", level())

	code, out, stderr := run(t, "", "patterns", "add", "zoquete", `\bzoquete\b`, "--category", "insult")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Added pattern 1")
	assert.Equal(t, "low", level())

	code, _, stderr = run(t, "", "patterns", "add", "broken", `(unclosed`, "--category", "insult")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr)

	code, out, _ = run(t, "", "patterns", "list", "--category", "insult", "--no-color")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `\bzoquete\b`)
	assert.Contains(t, out, "Custom patterns:")

	code, out, _ = run(t, "", "patterns", "disable", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Pattern 1 disabled")
	assert.Equal(t, "safe", level())

	code, _, _ = run(t, "", "patterns", "enable", "1")
	require.Equal(t, 0, code)
	assert.Equal(t, "low", level())

	code, _, _ = run(t, "", "patterns", "remove", "1")
	require.Equal(t, 0, code)
	code, _, _ = run(t, "", "patterns", "remove", "1")
	assert.Equal(t, 1, code)

	code, _, _ = run(t, "", "patterns", "remove", "abc")
	assert.Equal(t, 1, code)
}

func TestPatternsTest(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "", "patterns", "test", `\bcañón\b`, "Un CAÑÓN y otro cañón")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"CAÑÓN" at 3-8`)
	assert.Contains(t, out, `"cañón" at 16-21`)

	code, out, _ = run(t, "", "patterns", "test", `xyz`, "nada")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "no matches")
}

func TestPatternsStats(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "", "patterns", "stats", "--format", "json")
	require.Equal(t, 0, code, stderr)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 4, stats["total_states"])
	assert.EqualValues(t, 48, stats["total_patterns"])
}

func TestTrace(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "", "trace", "--no-color", "Eres un idiota y te voy a acosar")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "δ(q0, insult) = q1")
	assert.Contains(t, out, "δ(q1, harassment) = q2")
	assert.Contains(t, out, "final state q2 (MEDIUM)")

	code, out, _ = run(t, "", "trace", "--format", "json", "Te voy a matar")
	require.Equal(t, 0, code)
	var resp struct {
		Result map[string]any   `json:"result"`
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "extreme", resp.Result["level"])
	assert.Equal(t, "start", resp.Events[0]["kind"])
	assert.Equal(t, "completed", resp.Events[len(resp.Events)-1]["kind"])
}

func TestAutomatonTable(t *testing.T) {
	setupEnv(t)
	code, out, stderr := run(t, "", "automaton")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "insult")
	assert.Regexp(t, `q2\s+q2\s+q2\s+q2\s+q3\s+q3`, out)
	assert.Regexp(t, `q3\s+q3\s+q3\s+q3\s+q3\s+q3`, out)
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "toxic-scan ")
	assert.Contains(t, out, "Go Version:")
}
