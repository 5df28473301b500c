// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"toxic-scan/internal/version"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Full()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toxic-scan %s\n", info["version"])
			fmt.Fprintf(out, "Git Commit: %s\n", info["commit"])
			fmt.Fprintf(out, "Build Date: %s\n", info["buildDate"])
			fmt.Fprintf(out, "Go Version: %s\n", info["goVersion"])
			fmt.Fprintf(out, "OS/Arch:    %s\n", info["platform"])
		},
	}
}
