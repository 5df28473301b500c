// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/core"
	"toxic-scan/internal/detector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu      sync.Mutex
	loaded  []int
	results []error
}

func (m *recordingMetrics) CatalogLoaded(stats catalog.Statistics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, stats.TotalPatterns)
}

func (m *recordingMetrics) ReloadFinished(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, err)
}

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newReloader(t *testing.T, path string) (*Reloader, *recordingMetrics) {
	t.Helper()
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	m := &recordingMetrics{}
	return &Reloader{
		Loader:   core.CatalogLoader{Path: path},
		Detector: core.NewDetector(cat, core.Config{}),
		Metrics:  m,
	}, m
}

func TestReloaderSwapsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	writeCatalog(t, path, `{"insult": ["\\bidiota\\b"]}`)
	r, m := newReloader(t, path)

	assert.False(t, r.Detector.ProcessText("eres tonto").IsToxic)

	writeCatalog(t, path, `{"insult": ["\\bidiota\\b", "\\btonto\\b"]}`)
	require.NoError(t, r.Reload(context.Background()))
	assert.True(t, r.Detector.ProcessText("eres tonto").IsToxic)
	assert.Equal(t, []int{2}, m.loaded)
	assert.Equal(t, []error{nil}, m.results)
}

func TestReloaderKeepsCatalogOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	writeCatalog(t, path, `{"insult": ["\\bidiota\\b"]}`)
	r, m := newReloader(t, path)

	writeCatalog(t, path, `{"insult": [`)
	assert.Error(t, r.Reload(context.Background()))
	assert.True(t, r.Detector.ProcessText("idiota").IsToxic)
	require.Len(t, m.results, 1)
	assert.Error(t, m.results[0])
	assert.Empty(t, m.loaded)
}

// gatedSource blocks its first call until released and returns no
// patterns from it; later calls return the custom pattern at once
type gatedSource struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) ActivePatterns(ctx context.Context) ([]detector.PatternEntry, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
		return nil, nil
	}
	return []detector.PatternEntry{{Category: detector.Insult, Pattern: `\bzoquete\b`}}, nil
}

func TestConcurrentReloadsKeepNewestCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	writeCatalog(t, path, `{"insult": ["\\bidiota\\b"]}`)
	r, _ := newReloader(t, path)
	src := &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	r.Loader.Source = src

	stale := make(chan error, 1)
	go func() { stale <- r.Reload(context.Background()) }()
	<-src.entered

	fresh := make(chan error, 1)
	go func() { fresh <- r.Reload(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(src.release)

	require.NoError(t, <-stale)
	require.NoError(t, <-fresh)
	assert.True(t, r.Detector.ProcessText("eres un zoquete").IsToxic)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, 0, nil)
	assert.Error(t, err)

	_, err = New(&Reloader{Detector: core.NewDetector(nil, core.Config{})}, 0, nil)
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	writeCatalog(t, path, `{"insult": ["\\bidiota\\b"]}`)
	r, _ := newReloader(t, path)

	w, err := New(r, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// unrelated files in the directory are ignored
	writeCatalog(t, filepath.Join(filepath.Dir(path), "other.json"), `{}`)

	writeCatalog(t, path, `{"insult": ["\\bidiota\\b"], "threat": ["\\bte mato\\b"]}`)
	assert.Eventually(t, func() bool {
		return r.Detector.ProcessText("te mato").IsToxic
	}, 5*time.Second, 20*time.Millisecond)
}
