package engine

import (
	"math"
	"strings"
	"time"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/profile"
)

// DefaultConfidence stands in for a submission that carries no confidence.
const DefaultConfidence = 0.6

// Submission is one side's stored Result as presented for arbitration.
type Submission struct {
	Result domain.Result
	// ServerTimestamp is used when the result has no capture timestamp.
	ServerTimestamp string
	// NoConfidence marks a result whose confidence was not supplied.
	NoConfidence bool
}

func (s Submission) timestamp() (time.Time, bool) {
	if t, ok := ParseTimestamp(s.Result.Meta.Timestamp); ok {
		return t, true
	}
	return ParseTimestamp(s.ServerTimestamp)
}

func (s Submission) confidence() float64 {
	if s.NoConfidence {
		return DefaultConfidence
	}
	return s.Result.Confidence
}

func (s Submission) complete(policy profile.Arbitration) bool {
	if policy.CompleteFromWinner {
		return s.Result.Winner != domain.SideNone
	}
	return s.Result.Meta.IsFullTime
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp reads ISO-8601 timestamps with or without an offset. A bare
// "Z" suffix is accepted; timestamps without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	naive := strings.TrimSuffix(s, "Z")
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, naive, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Compare arbitrates two submissions for the same match.
//
// Preference: the only confirmed-complete submission (when the policy cares),
// then the later capture timestamp, then the first submission. The winner both
// submissions agree on is authoritative; otherwise the preferred one's stands.
func Compare(policy profile.Arbitration, a, b Submission) domain.Verdict {
	tsA, okA := a.timestamp()
	tsB, okB := b.timestamp()
	completeA, completeB := a.complete(policy), b.complete(policy)

	preferred := domain.SideA
	switch {
	case policy.PreferComplete && completeA && !completeB:
	case policy.PreferComplete && completeB && !completeA:
		preferred = domain.SideB
	// equal capture times go to the later submitter
	case okA && okB && !tsA.After(tsB):
		preferred = domain.SideB
	}

	aligned := okA && okB
	if aligned && policy.AlignWindow > 0 {
		gap := tsA.Sub(tsB)
		if gap < 0 {
			gap = -gap
		}
		aligned = gap <= policy.AlignWindow
	}

	pref, prefComplete := a, completeA
	if preferred == domain.SideB {
		pref, prefComplete = b, completeB
	}

	winner := pref.Result.Winner
	if w := a.Result.Winner; w != domain.SideNone && w == b.Result.Winner {
		winner = w
	}

	conf := round2((a.confidence() + b.confidence()) / 2)
	if prefComplete {
		conf += policy.CompleteBonus
	}
	if aligned {
		conf += policy.AlignBonus
	}
	conf = round2(math.Min(MaxConfidence, conf))

	return domain.Verdict{
		Aligned:    aligned,
		Preferred:  preferred,
		Winner:     winner,
		TieBreak:   pref.Result.TieBreak,
		Confidence: conf,
	}
}
