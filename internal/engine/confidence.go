package engine

import (
	"math"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/profile"
)

// MaxConfidence caps every score this package produces.
const MaxConfidence = 0.99

// ScoreInput is what the confidence policy looks at.
type ScoreInput struct {
	SideA, SideB      domain.SideStat
	FullTime          bool
	ClockParsed       bool
	AmbiguousIdentity bool
	Notes             int
}

// Score applies a confidence policy. The result is in [0, MaxConfidence] with two decimals.
func Score(policy profile.Confidence, in ScoreInput) float64 {
	c := policy.Base
	if policy.PerField > 0 {
		filled := filledStats(policy.KeyStats, &in.SideA) + filledStats(policy.KeyStats, &in.SideB)
		c = math.Min(MaxConfidence, c+float64(filled)*policy.PerField)
	}
	if !in.FullTime && policy.NotComplete > 0 {
		if !policy.NotCompleteUnlessClock || !in.ClockParsed {
			c -= policy.NotComplete
		}
	}
	if in.AmbiguousIdentity {
		c -= policy.Ambiguous
	}
	if in.Notes > 0 {
		c -= policy.Notes
	}
	return clampRound(c)
}

func filledStats(keys []profile.Stat, s *domain.SideStat) int {
	n := 0
	for _, k := range keys {
		if statValue(s, k) != nil {
			n++
		}
	}
	return n
}

func statValue(s *domain.SideStat, k profile.Stat) *int {
	switch k {
	case profile.StatGoals:
		return s.Goals
	case profile.StatShotsOnTarget:
		return s.ShotsOnTarget
	case profile.StatPossession:
		return s.Possession
	case profile.StatPenalties:
		return s.Penalties
	case profile.StatShots:
		return s.Raw.Shots
	case profile.StatShotAccuracy:
		return s.Raw.ShotAccuracy
	default:
		return nil
	}
}

// round2 rounds half to even at two decimals.
func round2(v float64) float64 { return math.RoundToEven(v*100) / 100 }

func clampRound(v float64) float64 {
	v = math.Max(0, math.Min(MaxConfidence, v))
	return round2(v)
}
