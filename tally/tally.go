// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"math"

	"github.com/danielhkuo/quickly-tally/models"
)

// Result is the normalized projection of a set of counts
type Result struct {
	Percentages map[string]int
	Total       int
}

// Aggregate sums counts and converts each to a rounded percentage of the total.
// With a zero total every percentage is 0.
func Aggregate(counts models.VoteCounts) Result {
	total := 0
	for _, c := range counts {
		total += c
	}

	percentages := make(map[string]int, len(counts))
	for optionID, c := range counts {
		if total == 0 {
			percentages[optionID] = 0
			continue
		}
		percentages[optionID] = int(math.Round(100 * float64(c) / float64(total)))
	}

	return Result{Percentages: percentages, Total: total}
}
