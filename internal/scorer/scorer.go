// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package scorer

// PerMatch is the confidence contributed by each kept match
const PerMatch = 0.15

// Score returns min(1, n*PerMatch). It is a heuristic, not a probability.
func Score(n int) float64 {
	if n <= 0 {
		return 0
	}
	return min(1.0, float64(n)*PerMatch)
}
