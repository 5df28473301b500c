// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfigOrDefault_NoFile(t *testing.T) {
	cfg := LoadConfigOrDefault("")
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Defaults.Format == "" {
		t.Error("expected default format to be set")
	}
}

func TestLoadConfigOrDefault_NonexistentFile(t *testing.T) {
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults)")
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, ":::invalid yaml:::")

	cfg := LoadConfigOrDefault(configPath)
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
	if cfg.Limits.MaxTextLength != DefaultMaxTextLength {
		t.Errorf("expected default max_text_length, got %d", cfg.Limits.MaxTextLength)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format=text, got %q", cfg.Defaults.Format)
	}
	if cfg.Engine.Name != "re2" {
		t.Errorf("expected default engine re2, got %q", cfg.Engine.Name)
	}
	if cfg.Limits.MaxTextLength != 10000 {
		t.Errorf("expected max_text_length=10000, got %d", cfg.Limits.MaxTextLength)
	}
	if cfg.Limits.MaxFileSize != 5*1024*1024 {
		t.Errorf("expected max_file_size=5MiB, got %d", cfg.Limits.MaxFileSize)
	}
	if !cfg.Store.Enabled {
		t.Error("expected store to be enabled by default")
	}
	if cfg.Highlight.EscapeUnmatched {
		t.Error("expected escape_unmatched to default to false")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
defaults:
  format: json
catalog:
  path: patterns.yaml
  watch: true
engine:
  name: regexp2
  match_timeout: 100ms
highlight:
  escape_unmatched: true
store:
  path: /var/lib/toxic-scan/db.sqlite
  retention_days: 30
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "json" {
		t.Errorf("expected format=json, got %q", cfg.Defaults.Format)
	}
	if cfg.Catalog.Path != filepath.Join(filepath.Dir(configPath), "patterns.yaml") {
		t.Errorf("expected catalog path relative to config file, got %q", cfg.Catalog.Path)
	}
	if !cfg.Catalog.Watch {
		t.Error("expected catalog watch enabled")
	}
	if cfg.Engine.Name != "regexp2" || cfg.Engine.MatchTimeout != 100*time.Millisecond {
		t.Errorf("unexpected engine settings: %+v", cfg.Engine)
	}
	if !cfg.Highlight.EscapeUnmatched {
		t.Error("expected escape_unmatched=true")
	}
	if !cfg.Store.Enabled {
		t.Error("store.enabled should keep its default when omitted")
	}
	if cfg.Store.Path != "/var/lib/toxic-scan/db.sqlite" {
		t.Errorf("absolute store path should be kept, got %q", cfg.Store.Path)
	}
	if cfg.Store.RetentionDays != 30 {
		t.Errorf("expected retention_days=30, got %d", cfg.Store.RetentionDays)
	}
}

func TestLoadConfig_StoreDisabled(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "store:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Enabled {
		t.Error("expected store disabled")
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"format":   "defaults:\n  format: xml\n",
		"engine":   "engine:\n  name: pcre\n",
		"limit":    "limits:\n  max_text_length: 0\n",
		"schedule": "store:\n  prune_schedule: every day\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := ValidateConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TOXIC_ENGINE", "regexp2")
	t.Setenv("TOXIC_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("TOXIC_STORE_ENABLED", "false")
	t.Setenv("TOXIC_MAX_TEXT_LENGTH", "500")
	t.Setenv("TOXIC_LOG_LEVEL", "debug")

	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Name != "regexp2" {
		t.Errorf("expected engine from env, got %q", cfg.Engine.Name)
	}
	if cfg.Server.Address != "127.0.0.1:9999" {
		t.Errorf("expected address from env, got %q", cfg.Server.Address)
	}
	if cfg.Store.Enabled {
		t.Error("expected store disabled from env")
	}
	if cfg.Limits.MaxTextLength != 500 {
		t.Errorf("expected max_text_length=500, got %d", cfg.Limits.MaxTextLength)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logging.Level)
	}
}

func TestApplyEnv_InvalidValueFails(t *testing.T) {
	t.Setenv("TOXIC_ENGINE", "pcre")
	if err := ApplyEnv(Default()); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestFindConfigFile_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	if got := FindConfigFile(); got != "" {
		t.Errorf("expected no config file, got %q", got)
	}
	if err := os.WriteFile("toxic-scan.yaml", []byte("defaults:\n  format: json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != "toxic-scan.yaml" {
		t.Errorf("expected toxic-scan.yaml, got %q", got)
	}
}

func TestFindConfigFile_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	xdg := filepath.Join(dir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "toxic-scan"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(xdg, "toxic-scan", "config.yaml")
	if err := os.WriteFile(want, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
