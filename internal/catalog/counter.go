package catalog

import (
	"parity/internal/config"
	"parity/internal/descriptor"
)

// Package-level tallies stand in for static state. Each side owns its own.
var (
	refTally int64
	subTally int64
)

// RefNext advances the reference tally by step and returns it.
func RefNext(step int) int64 {
	refTally += int64(step)
	return refTally
}

// SubNext advances the submission tally by step and returns it.
func SubNext(step int) int64 {
	next := subTally
	for i := 0; i < step; i++ {
		next++
	}
	for i := 0; i > step; i-- {
		next--
	}
	subTally = next
	return subTally
}

// ResetTallies zeroes both tallies.
func ResetTallies() {
	refTally = 0
	subTally = 0
}

func init() {
	register("counter", func() Problem {
		return Problem{
			Description: "static tally, order dependent, run serially",
			ExpectPass:  true,
			EntryPoint: descriptor.EntryPoint{
				Reference:  descriptor.Class{Name: "RefCounter", Funcs: map[string]any{"Next": RefNext}},
				Submission: descriptor.Class{Name: "SubCounter", Funcs: map[string]any{"Next": SubNext}},
				Method:     "Next",
				Static:     true,
				Serial:     true,
				Defaults:   &config.RunConfig{MaxComplexity: 4},
			},
		}
	})
}
