// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"toxic-scan/internal/extract"
	"toxic-scan/internal/formatters"
	"toxic-scan/internal/logging"
	"toxic-scan/internal/parallel"
	"toxic-scan/internal/store"

	_ "toxic-scan/internal/formatters/csv"
	_ "toxic-scan/internal/formatters/html"
	_ "toxic-scan/internal/formatters/json"
	_ "toxic-scan/internal/formatters/text"
	_ "toxic-scan/internal/formatters/yaml"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	text        string
	output      string
	workers     int
	failOnToxic bool
	save        bool
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Classify text, stdin or documents",
		Long: `Classify literal text, text piped on stdin, or documents.

Supported documents are .txt, .html/.htm and .pdf. Several files are
analysed in parallel and reported in the order given.

Exit codes:
  0  every input analysed
  1  an input could not be analysed
  2  toxic input found and --fail-on-toxic set

Examples:
  toxic-scan analyze --text "Eres un idiota"
  echo "Te voy a matar" | toxic-scan analyze --format json
  toxic-scan analyze --workers 4 --format csv --output report.csv logs/*.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.text, "text", "t", "", "text to analyse")
	f.StringVarP(&opts.output, "output", "o", "", "write results to a file instead of stdout")
	f.IntVarP(&opts.workers, "workers", "w", 0, "parallel workers for multiple inputs (default from config)")
	f.BoolVar(&opts.failOnToxic, "fail-on-toxic", false, "exit with status 2 when any input is toxic")
	f.BoolVar(&opts.save, "save", false, "persist analyses and daily statistics in the store")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, opts *analyzeOptions, args []string) error {
	ctx := cmd.Context()
	mode := storeIfPresent
	if opts.save {
		mode = storeRequired
	}
	a, err := newApp(ctx, g, mode, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	inputs, err := collectInputs(cmd.InOrStdin(), opts.text, args, a.cfg.Limits.MaxTextLength)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Defaults.Workers
	}
	processor := parallel.NewProcessor(workers, a.detector, extract.New(a.cfg.Limits.MaxFileSize), a.observer)

	errOut := cmd.ErrOrStderr()
	var progress parallel.ProgressCallback
	if len(inputs) > 1 && isTerminal(errOut) && !a.cfg.Defaults.Debug {
		progress = func(completed, total int, name string) {
			fmt.Fprintf(errOut, "\r[%d/%d] %s\033[K", completed, total, filepath.Base(name))
			if completed == total {
				fmt.Fprintln(errOut)
			}
		}
	}

	results, stats := processor.Process(ctx, inputs, progress)
	a.log.Debug("batch finished",
		logging.Int("inputs", stats.TotalInputs),
		logging.Int("failed", stats.FailedInputs),
		logging.Int("toxic", stats.ToxicInputs),
		logging.Int("workers", stats.WorkerCount),
		logging.Duration("duration", stats.TotalDuration))

	reports := make([]formatters.Report, len(results))
	failed, toxic := false, false
	for i, r := range results {
		report := formatters.Report{Source: r.Name, Result: r.Analysis, Duration: r.Duration}
		if r.Error != nil {
			report.Error = r.Error.Error()
			failed = true
		}
		if r.Document != nil {
			report.Result.Warnings = append(report.Result.Warnings, r.Document.Warnings...)
		}
		toxic = toxic || report.Result.IsToxic
		reports[i] = report

		if opts.save && r.Error == nil {
			if err := saveResult(cmd, a.store, r, report); err != nil {
				return err
			}
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		file, err := os.Create(filepath.Clean(opts.output))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	content, err := formatters.Export(a.cfg.Defaults.Format, reports, formatters.FormatterOptions{
		Verbose: g.verbose,
		NoColor: !useColor(a.cfg, out),
	})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, content); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if opts.output != "" {
		fmt.Fprintf(errOut, "Results written to %s\n", opts.output)
	}

	switch {
	case failed:
		return &exitError{code: 1}
	case opts.failOnToxic && toxic:
		return &exitError{code: 2}
	}
	return nil
}

func saveResult(cmd *cobra.Command, s *store.Store, r parallel.Result, report formatters.Report) error {
	in := store.NewAnalysis{Result: report.Result, SourceType: store.SourceText}
	if r.Document != nil {
		in.SourceType = store.SourceFile
		in.FileName = r.Document.Name
		in.FileType = r.Document.Type
	}
	if _, err := s.SaveAnalysis(cmd.Context(), in); err != nil {
		return fmt.Errorf("failed to save analysis of %s: %w", r.Name, err)
	}
	return nil
}

// collectInputs builds the batch from --text and file arguments, falling
// back to stdin when neither is given and stdin is not a terminal
func collectInputs(stdin io.Reader, text string, files []string, maxLength int) ([]parallel.Input, error) {
	var inputs []parallel.Input

	if text != "" {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, errors.New("text cannot be empty")
		}
		if err := checkLength(text, maxLength); err != nil {
			return nil, err
		}
		inputs = append(inputs, parallel.Input{Name: "text", Text: text})
	}
	for _, path := range files {
		inputs = append(inputs, parallel.Input{Name: path, Path: path})
	}
	if len(inputs) > 0 {
		return inputs, nil
	}

	if stdin == nil || isTerminal(stdin) {
		return nil, errors.New("no input: use --text, pass files, or pipe text on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	piped := strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	if piped == "" {
		return nil, errors.New("no input: stdin was empty")
	}
	if err := checkLength(piped, maxLength); err != nil {
		return nil, err
	}
	return []parallel.Input{{Name: "stdin", Text: piped}}, nil
}

func checkLength(text string, maxLength int) error {
	if n := utf8.RuneCountInString(text); maxLength > 0 && n > maxLength {
		return fmt.Errorf("text is too long (%d characters, maximum %d)", n, maxLength)
	}
	return nil
}
