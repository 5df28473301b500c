// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"toxic-scan/internal/catalog"
	"toxic-scan/internal/detector"
	"toxic-scan/internal/matcher"
	"toxic-scan/internal/store"

	"github.com/spf13/cobra"
)

func newPatternsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the catalog and manage custom patterns",
		Long: `Inspect the pattern catalog and manage custom patterns.

Subcommands:
  list     - Show the loaded patterns by category
  stats    - Show pattern counts
  test     - Try a pattern against a text without changing anything
  add      - Store a custom pattern
  disable  - Deactivate a custom pattern
  enable   - Reactivate a custom pattern
  remove   - Delete a custom pattern

Custom patterns live in the SQLite store and are appended to the catalog
file's patterns every time the catalog is loaded.

Examples:
  toxic-scan patterns list --category threat
  toxic-scan patterns test '\bzoquete\b' "eres un zoquete"
  toxic-scan patterns add zoquete '\bzoquete\b' --category insult`,
	}

	cmd.AddCommand(
		newPatternsListCmd(g),
		newPatternsStatsCmd(g),
		newPatternsTestCmd(g),
		newPatternsAddCmd(g),
		newPatternsToggleCmd(g, "disable", false),
		newPatternsToggleCmd(g, "enable", true),
		newPatternsRemoveCmd(g),
	)
	return cmd
}

// categoryPatterns is one catalog group in structured output
type categoryPatterns struct {
	Category detector.Category `json:"category" yaml:"category"`
	Patterns []string          `json:"patterns" yaml:"patterns"`
}

func newPatternsListCmd(g *globalOptions) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the loaded patterns by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter detector.Category
			if only != "" {
				c, err := detector.ParseCategory(only)
				if err != nil {
					return err
				}
				filter = c
			}

			a, err := newApp(cmd.Context(), g, storeIfPresent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			var groups []categoryPatterns
			for category, patterns := range a.detector.Catalog().IterCategories() {
				if filter != "" && category != filter {
					continue
				}
				groups = append(groups, categoryPatterns{Category: category, Patterns: patterns})
			}

			out := cmd.OutOrStdout()
			var custom []store.Pattern
			if a.store != nil {
				if custom, err = a.store.ListPatterns(cmd.Context(), false); err != nil {
					return err
				}
			}
			if done, err := writeStructured(out, a.cfg.Defaults.Format, map[string]any{
				"categories": groups,
				"custom":     custom,
			}); done {
				return err
			}

			for _, group := range groups {
				fmt.Fprintf(out, "%s (%d)\n", group.Category, len(group.Patterns))
				for _, p := range group.Patterns {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			if len(custom) > 0 {
				fmt.Fprintln(out, "\nCustom patterns:")
				printPatternTable(cmd, custom)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "category", "", "only show one category")
	return cmd
}

func printPatternTable(cmd *cobra.Command, patterns []store.Pattern) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tLEVEL\tACTIVE\tPATTERN")
	for _, p := range patterns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", p.ID, p.Name, p.Category, p.Level, p.IsActive, p.Pattern)
	}
	w.Flush()
}

func newPatternsStatsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pattern counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, storeIfPresent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.detector.Statistics()
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, a.cfg.Defaults.Format, stats); done {
				return err
			}

			fmt.Fprintf(out, "States:   %d\n", stats.TotalStates)
			fmt.Fprintf(out, "Patterns: %d\n", stats.TotalPatterns)
			fmt.Fprintf(out, "Engine:   %s\n", a.detector.Engine())
			for category := range a.detector.Catalog().IterCategories() {
				fmt.Fprintf(out, "  %-11s %d\n", category, stats.PatternsByType[category])
			}
			return nil
		},
	}
}

func newPatternsTestCmd(g *globalOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "test PATTERN TEXT",
		Short: "Try a pattern against a text",
		Long: `Compile PATTERN with the configured engine and list its matches in
TEXT using the same rules as an analysis: case-insensitive, character
offsets, empty matches dropped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := detector.ParseCategory(category)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g, storeNone, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			pattern, text := args[0], args[1]
			if err := a.detector.ValidatePattern(pattern); err != nil {
				return err
			}

			cat := catalog.New()
			if err := cat.AddPattern(c, pattern); err != nil {
				return err
			}
			result := matcher.New(a.engine).Scan(text, cat.Snapshot(), nil)
			if len(result.Errors) > 0 {
				return result.Errors[0]
			}

			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, a.cfg.Defaults.Format, result.Matches); done {
				return err
			}
			if len(result.Matches) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, m := range result.Matches {
				fmt.Fprintf(out, "%q at %d-%d\n", m.Text, m.Start, m.End)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", string(detector.Insult), "category to test the pattern under")
	return cmd
}

func newPatternsAddCmd(g *globalOptions) *cobra.Command {
	var category, level, description string
	cmd := &cobra.Command{
		Use:   "add NAME PATTERN",
		Short: "Store a custom pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := detector.ParseCategory(category)
			if err != nil {
				return err
			}
			sev, err := detector.ParseSeverity(level)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g, storeRequired, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.detector.ValidatePattern(args[1]); err != nil {
				return err
			}
			p, err := a.store.CreatePattern(cmd.Context(), store.NewPattern{
				Name:        args[0],
				Pattern:     args[1],
				Category:    c,
				Level:       sev,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added pattern %d (%s, %s)\n", p.ID, p.Name, p.Category)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&category, "category", "", "toxicity category (required)")
	f.StringVar(&level, "level", string(detector.Low), "nominal toxicity level")
	f.StringVar(&description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newPatternsToggleCmd(g *globalOptions, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a custom pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatternID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g, storeRequired, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SetPatternActive(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pattern %d %sd\n", id, use)
			return nil
		},
	}
}

func newPatternsRemoveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a custom pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatternID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g, storeRequired, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeletePattern(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pattern %d removed\n", id)
			return nil
		},
	}
}

func parsePatternID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pattern id %q", s)
	}
	return id, nil
}
