// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"toxic-scan/internal/detector"
	"toxic-scan/internal/store"

	"github.com/spf13/cobra"
)

func newStatsCmd(g *globalOptions) *cobra.Command {
	var date string
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted statistics",
		Long: `Show statistics of the analyses persisted in the store.

Without --date the overall rates and breakdowns are printed together with
the daily counters of the last --days days. With --date the report of a
single day (YYYY-MM-DD, UTC) is printed.

Examples:
  toxic-scan stats
  toxic-scan stats --date 2026-10-19 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := time.Parse(store.DateLayout, date); err != nil {
					return fmt.Errorf("invalid date %q, use YYYY-MM-DD", date)
				}
			}

			a, err := newApp(cmd.Context(), g, storeIfPresent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireStore(); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			format := a.cfg.Defaults.Format

			if date != "" {
				report, err := a.store.DayReport(ctx, date)
				if err != nil {
					return err
				}
				if done, err := writeStructured(out, format, report); done {
					return err
				}
				printDayReport(out, report)
				return nil
			}

			general, err := a.store.GeneralStatistics(ctx)
			if err != nil {
				return err
			}
			recent, err := a.store.RecentStatistics(ctx, days)
			if err != nil {
				return err
			}
			if done, err := writeStructured(out, format, map[string]any{
				"stats":        general,
				"recent_stats": recent,
			}); done {
				return err
			}
			printGeneral(out, general, recent)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report a single day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "number of recent days to list")
	return cmd
}

func printGeneral(out io.Writer, s *store.GeneralStatistics, recent []store.DayStatistics) {
	fmt.Fprintf(out, "Analyses: %d (toxic %d, safe %d)\n", s.TotalAnalyses, s.ToxicAnalyses, s.SafeAnalyses)
	fmt.Fprintf(out, "Toxicity rate: %.2f%%  Safety rate: %.2f%%\n\n", s.ToxicityRate, s.SafetyRate)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tCOUNT\tPERCENT")
	for _, level := range detector.Severities {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", level, s.ToxicityLevelStats[level], s.ToxicityLevelPercentages[level])
	}
	w.Flush()
	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOUNT\tPERCENT")
	for _, c := range detector.Categories {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", c, s.ToxicityTypeStats[c], s.ToxicityTypePercentages[c])
	}
	w.Flush()

	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTOTAL\tTOXIC\tSAFE\tLOW\tMEDIUM\tEXTREME")
	for _, d := range recent {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", d.Date, d.TotalAnalyses, d.ToxicAnalyses,
			d.SafeAnalyses, d.LowToxicity, d.MediumToxicity, d.ExtremeToxicity)
	}
	w.Flush()
}

func printDayReport(out io.Writer, r *store.DayReport) {
	fmt.Fprintf(out, "Date: %s\n", r.Date)
	fmt.Fprintf(out, "Analyses: %d (toxic %d, safe %d)\n", r.Stats.TotalAnalyses, r.Stats.ToxicAnalyses, r.Stats.SafeAnalyses)
	fmt.Fprintf(out, "Toxicity rate: %.2f%%  Safety rate: %.2f%%\n", r.ToxicityRate, r.SafetyRate)
	fmt.Fprintf(out, "Levels: low %d, medium %d, extreme %d\n",
		r.Stats.LowToxicity, r.Stats.MediumToxicity, r.Stats.ExtremeToxicity)

	if len(r.RecentAnalyses) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLEVEL\tSOURCE\tTEXT")
	for _, a := range r.RecentAnalyses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.CreatedAt, a.Level, a.SourceType, a.TextPreview)
	}
	w.Flush()
}
