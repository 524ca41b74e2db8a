// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally turns raw vote counts into percentages.

	res := tally.Aggregate(models.VoteCounts{"a": 2, "b": 1})
	// res.Total == 3, res.Percentages == {"a": 67, "b": 33}

Each percentage is round(100 × count / total). When the total is zero every
option maps to 0. Rounding drift means the percentages of a non-empty tally
sum to roughly, not exactly, 100.
*/
package tally
