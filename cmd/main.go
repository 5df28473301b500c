// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// toxic-scan classifies Spanish text as safe or toxic with a pattern
// catalog and a four-state escalation automaton.
//
// Usage:
//
//	# Classify literal text
//	toxic-scan analyze --text "Eres un idiota"
//
//	# Classify documents in parallel and write JSON
//	toxic-scan analyze --format json --output report.json chat.txt page.html
//
//	# Walk through the automaton step by step
//	toxic-scan trace "Eres un idiota y te voy a acosar"
//
//	# Run the HTTP API
//	toxic-scan serve --config toxic-scan.yaml
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
