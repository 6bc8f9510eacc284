// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import "math"

// ClampProgress limits p to [0, 100]. NaN reads as 0.
func ClampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// StepDone reports whether step i of n is complete at the given progress.
// Step i is done once progress reaches its share of the plan, less one
// point of slack.
func StepDone(i, n int, progress float64) bool {
	if n <= 0 || i < 0 || i >= n {
		return false
	}
	return progress >= (float64(i+1)/float64(n))*100-1
}

// ActiveStep returns the index of the first unfinished step, or n when all
// steps are done.
func ActiveStep(n int, progress float64) int {
	for i := 0; i < n; i++ {
		if !StepDone(i, n, progress) {
			return i
		}
	}
	return n
}
