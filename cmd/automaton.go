// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"toxic-scan/internal/automaton"

	"github.com/spf13/cobra"
)

func newAutomatonCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "automaton",
		Short: "Print the states and transition table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}

			desc := automaton.Describe()
			out := cmd.OutOrStdout()
			if done, err := writeStructured(out, cfg.Defaults.Format, desc); done {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATE\tLEVEL\tINITIAL\tABSORBING")
			for _, s := range desc.States {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", s.ID.ID(), strings.ToUpper(s.Level.String()), s.Initial, s.Absorbing)
			}
			w.Flush()
			fmt.Fprintln(out)

			header := []string{"δ"}
			for _, c := range desc.Alphabet {
				header = append(header, c.String())
			}
			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join(header, "\t"))
			row := make([]string, 0, len(desc.Alphabet)+1)
			for _, e := range desc.Transitions {
				if len(row) == 0 {
					row = append(row, e.From.ID())
				}
				row = append(row, e.To.ID())
				if len(row) == len(desc.Alphabet)+1 {
					fmt.Fprintln(w, strings.Join(row, "\t"))
					row = row[:0]
				}
			}
			return w.Flush()
		},
	}
}
