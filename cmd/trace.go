// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"toxic-scan/internal/core"
	"toxic-scan/internal/highlight"
	"toxic-scan/internal/observability"

	"github.com/spf13/cobra"
)

// traceOutput is the structured form of a trace
type traceOutput struct {
	Result core.AnalysisResult   `json:"result" yaml:"result"`
	Events []observability.Event `json:"events" yaml:"events"`
}

func newTraceCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace TEXT...",
		Short: "Walk through the automaton step by step",
		Long: `Analyse one text and print every automaton transition: the word
detected, the pattern that matched it, and the state before and after.

With --format json or yaml the trace events are printed as data.

Examples:
  toxic-scan trace "Eres un idiota y te voy a acosar"
  toxic-scan trace --format json "Te voy a matar"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, storeIfPresent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			text := strings.TrimSpace(strings.Join(args, " "))
			if err := checkLength(text, a.cfg.Limits.MaxTextLength); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.cfg.Defaults.Format == "text" {
				result := a.detector.Trace(text, observability.NewDebugObserver(out))
				if len(result.DetectedWords) > 0 {
					rendered := result.OriginalText
					if useColor(a.cfg, out) {
						rendered = highlight.ANSI(result.OriginalText, result.DetectedWords)
					}
					fmt.Fprintf(out, "\nhighlighted: %s\n", rendered)
				}
				return nil
			}

			rec := &observability.Recorder{}
			result := a.detector.Trace(text, rec)
			_, err = writeStructured(out, a.cfg.Defaults.Format, traceOutput{Result: result, Events: rec.Events})
			return err
		},
	}
}
