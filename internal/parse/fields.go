// Package parse turns raw recognized text into typed optional values.
// Every parser is total: malformed input yields nil, never a panic or error.
package parse

import (
	"math"
	"regexp"
	"strconv"
)

var (
	digitsRe = regexp.MustCompile(`\d+`)
	pairRe   = regexp.MustCompile(`(\d+)\s*[-:\x{2013}]\s*(\d+)`)
	clockRe  = regexp.MustCompile(`(\d{1,3}):(\d{2})`)
)

// Int returns the first maximal run of digits in s.
func Int(s string) *int {
	m := digitsRe.FindString(s)
	if m == "" {
		return nil
	}
	return atoi(m)
}

// Percent extracts a percentage the same way Int does. No upper bound is applied;
// callers compare with their own tolerance.
func Percent(s string) *int { return Int(s) }

// ScorePair finds "<digits> <sep> <digits>" where sep is '-', ':' or an en dash.
func ScorePair(s string) (left, right *int) {
	m := pairRe.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}
	left, right = atoi(m[1]), atoi(m[2])
	if left == nil || right == nil {
		return nil, nil
	}
	return left, right
}

// PenaltyPair reads shootout blocks such as "PK: 9 - 8".
func PenaltyPair(s string) (left, right *int) { return ScorePair(s) }

// Clock returns the total seconds of the first "m:ss" (1-3 minute digits) in s.
func Clock(s string) *int {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	minutes, seconds := atoi(m[1]), atoi(m[2])
	if minutes == nil || seconds == nil {
		return nil
	}
	total := *minutes*60 + *seconds
	return &total
}

// PairNumbers reads two number-only regions independently.
func PairNumbers(leftText, rightText string) (left, right *int) {
	return Int(leftText), Int(rightText)
}

// EstimateShotsOnTarget derives shots on target from total shots and accuracy.
// Halves round to even.
func EstimateShotsOnTarget(shots, accuracyPercent *int) *int {
	if shots == nil || accuracyPercent == nil {
		return nil
	}
	v := int(math.RoundToEven(float64(*shots) * float64(*accuracyPercent) / 100.0))
	return &v
}

// atoi rejects runs that overflow int.
func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
