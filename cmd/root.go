// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"toxic-scan/internal/version"

	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	format     string
	noColor    bool
	debug      bool
	verbose    bool
}

// exitError ends the process with code after the command has already
// reported its outcome
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "toxic-scan",
		Short: "Pattern-based toxicity classifier",
		Long: `toxic-scan classifies Spanish text as safe or toxic.

Every input is scanned against a catalog of regular expressions grouped by
category (insult, profanity, harassment, threat, hate). The ordered hits
drive a deterministic automaton through the states q0 SAFE, q1 LOW,
q2 MEDIUM and q3 EXTREME; the final state is the toxicity level.

Matched words are highlighted in the output and a confidence value of
min(1, matches * 0.15) is reported.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.Info() + "\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "config file path (default: search standard locations)")
	pf.StringVarP(&g.format, "format", "f", "", "output format: text, json, yaml, csv, html")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging and timing output")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "show the state path and every detected word")

	root.AddCommand(
		newAnalyzeCmd(g),
		newTraceCmd(g),
		newPatternsCmd(g),
		newAutomatonCmd(g),
		newServeCmd(g),
		newStatsCmd(g),
		newVersionCmd(),
	)
	return root
}

// execute runs the command line and returns the process exit code:
// 0 on success, 1 on error and 2 when --fail-on-toxic finds toxic input
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
