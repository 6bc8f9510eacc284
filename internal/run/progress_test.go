// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package run

import (
	"math"
	"testing"
)

func TestClampProgress(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{150, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, tt := range tests {
		if got := ClampProgress(tt.in); got != tt.want {
			t.Errorf("ClampProgress(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStepDone(t *testing.T) {
	want := []bool{true, true, false, false}
	for i, w := range want {
		if got := StepDone(i, 4, 60); got != w {
			t.Errorf("StepDone(%d, 4, 60) = %v, want %v", i, got, w)
		}
	}
	if got := ActiveStep(4, 60); got != 2 {
		t.Errorf("ActiveStep(4, 60) = %d, want 2", got)
	}
	if got := ActiveStep(3, 100); got != 3 {
		t.Errorf("ActiveStep(3, 100) = %d, want 3", got)
	}
	// One point of slack: 99 completes the last of 3 steps.
	if !StepDone(2, 3, 99) {
		t.Error("StepDone(2, 3, 99) should be true")
	}
	if StepDone(0, 0, 100) || StepDone(5, 3, 100) || StepDone(-1, 3, 100) {
		t.Error("out of range steps must never be done")
	}
}
